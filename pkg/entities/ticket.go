package entities

import (
	"fmt"

	"github.com/stewardbot/steward/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketStatusOpen is the status of a ticket that is still being worked.
	TicketStatusOpen TicketStatus = "open"

	// TicketStatusResolved is the terminal status of a ticket. A resolved
	// ticket is never reopened.
	TicketStatusResolved TicketStatus = "resolved"
)

// Ticket is a help ticket. The discussion thread is only the display surface;
// this record is the authoritative state.
type Ticket struct {
	// ID is the number of the ticket within the guild.
	ID int `json:"id"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id"`

	// ChannelID is the ID of the help channel that the ticket notice was
	// posted to.
	ChannelID string `json:"channel_id"`

	// ThreadID is the ID of the discussion thread opened on the notice.
	ThreadID string `json:"thread_id"`

	// NoticeMessageID is the ID of the notice message carrying the ticket
	// embed and the resolve button.
	NoticeMessageID string `json:"notice_message_id"`

	// UserID is the ID of the user that filed the ticket. This is the single
	// authoritative identity of the requester.
	UserID string `json:"user_id"`

	// Username is the username of the requester at filing time. Display only;
	// never used for matching.
	Username string `json:"username"`

	// Reason is the problem description supplied by the requester.
	Reason string `json:"reason"`

	// Status is the lifecycle state of the ticket.
	Status TicketStatus `json:"status"`

	// ResolvedBy is the ID of the user that resolved the ticket.
	ResolvedBy string `json:"resolved_by,omitempty"`

	// Resolution is the reason given when the ticket was resolved.
	Resolution string `json:"resolution,omitempty"`

	// CreatedAt is the time that the ticket was filed.
	CreatedAt custom.Datetime `json:"created_at"`

	// ResolvedAt is the time that the ticket was resolved.
	ResolvedAt custom.Datetime `json:"resolved_at,omitempty"`
}

// Name returns the display name of the ticket, used as the thread name.
func (t *Ticket) Name() string {
	return fmt.Sprintf("%d-%s", t.ID, t.Username)
}

// Open reports whether the ticket is still open.
func (t *Ticket) Open() bool {
	return t.Status == TicketStatusOpen
}
