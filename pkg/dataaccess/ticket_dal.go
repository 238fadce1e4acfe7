package dataaccess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stewardbot/steward/pkg/dataaccess/monitoring"
	"github.com/stewardbot/steward/pkg/dataaccess/store"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stewardbot/steward/pkg/logging"
)

const ticketDalName = "ticket_dal"

// ErrTicketNotFound is returned when no ticket matches a lookup.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketDal is the data access layer for the ticket registry. Tickets are
// keyed by their discussion thread ID.
type TicketDal interface {
	// SaveTicket saves a ticket.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetTicketByThread gets the ticket owning the given thread.
	GetTicketByThread(ctx context.Context, guildID, threadID string) (*entities.Ticket, error)

	// GetTicketByNotice gets the ticket whose notice message has the given ID.
	GetTicketByNotice(ctx context.Context, guildID, messageID string) (*entities.Ticket, error)

	// GetOpenTicketByUser gets the newest open ticket filed by the user in
	// the given guild.
	GetOpenTicketByUser(ctx context.Context, guildID, userID string) (*entities.Ticket, error)

	// GetLatestOpenTicketForUser gets the newest open ticket filed by the
	// user across all guilds.
	GetLatestOpenTicketForUser(ctx context.Context, userID string) (*entities.Ticket, error)

	// NextTicketID returns the next free ticket number for the guild.
	NextTicketID(ctx context.Context, guildID string) (int, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// file is the backing store file.
	file *store.File
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal() TicketDal {
	l := slog.Default().With(slog.String(logging.KeyDal, ticketDalName))

	if Tickets == nil {
		l.Warn("Ticket store is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:    l,
		file: Tickets,
	}
}

func (d *ticketDal) SaveTicket(_ context.Context, ticket *entities.Ticket) error {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "save_ticket").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "save_ticket"))
	defer t.ObserveDuration()

	if ticket.ThreadID == "" {
		return fmt.Errorf("ticket has no thread ID")
	}

	if err := d.file.Put(ticket.ThreadID, ticket); err != nil {
		return fmt.Errorf("error saving ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) GetTicketByThread(_ context.Context, guildID, threadID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_thread").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_ticket_by_thread"))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	ok, err := d.file.Get(threadID, ticket)
	if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	} else if !ok || ticket.GuildID != guildID {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

func (d *ticketDal) GetTicketByNotice(_ context.Context, guildID, messageID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_notice").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_ticket_by_notice"))
	defer t.ObserveDuration()

	found := d.find(func(ticket *entities.Ticket) bool {
		return ticket.GuildID == guildID && ticket.NoticeMessageID == messageID
	})
	if found == nil {
		return nil, ErrTicketNotFound
	}
	return found, nil
}

func (d *ticketDal) GetOpenTicketByUser(_ context.Context, guildID, userID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_open_ticket_by_user").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_open_ticket_by_user"))
	defer t.ObserveDuration()

	found := d.newest(func(ticket *entities.Ticket) bool {
		return ticket.GuildID == guildID && ticket.UserID == userID && ticket.Open()
	})
	if found == nil {
		return nil, ErrTicketNotFound
	}
	return found, nil
}

func (d *ticketDal) GetLatestOpenTicketForUser(_ context.Context, userID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_latest_open_ticket_for_user").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_latest_open_ticket_for_user"))
	defer t.ObserveDuration()

	found := d.newest(func(ticket *entities.Ticket) bool {
		return ticket.UserID == userID && ticket.Open()
	})
	if found == nil {
		return nil, ErrTicketNotFound
	}
	return found, nil
}

func (d *ticketDal) NextTicketID(_ context.Context, guildID string) (int, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "next_ticket_id").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "next_ticket_id"))
	defer t.ObserveDuration()

	max := 0
	d.file.Range(func(_ string, raw json.RawMessage) bool {
		ticket := new(entities.Ticket)
		if err := json.Unmarshal(raw, ticket); err != nil {
			d.l.Warn("Skipping unreadable ticket record", slog.String(logging.KeyError, err.Error()))
			return true
		}
		if ticket.GuildID == guildID && ticket.ID > max {
			max = ticket.ID
		}
		return true
	})
	return max + 1, nil
}

// find returns the first ticket matching the predicate, in store key order.
func (d *ticketDal) find(match func(*entities.Ticket) bool) *entities.Ticket {
	var found *entities.Ticket
	d.file.Range(func(_ string, raw json.RawMessage) bool {
		ticket := new(entities.Ticket)
		if err := json.Unmarshal(raw, ticket); err != nil {
			d.l.Warn("Skipping unreadable ticket record", slog.String(logging.KeyError, err.Error()))
			return true
		}
		if match(ticket) {
			found = ticket
			return false
		}
		return true
	})
	return found
}

// newest returns the matching ticket with the latest creation time.
func (d *ticketDal) newest(match func(*entities.Ticket) bool) *entities.Ticket {
	var found *entities.Ticket
	d.file.Range(func(_ string, raw json.RawMessage) bool {
		ticket := new(entities.Ticket)
		if err := json.Unmarshal(raw, ticket); err != nil {
			d.l.Warn("Skipping unreadable ticket record", slog.String(logging.KeyError, err.Error()))
			return true
		}
		if match(ticket) && (found == nil || ticket.CreatedAt.Time().After(found.CreatedAt.Time())) {
			found = ticket
		}
		return true
	})
	return found
}
