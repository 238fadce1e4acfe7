package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/cmd/bot/monitoring"
	"github.com/stewardbot/steward/pkg/custom"
	"github.com/stewardbot/steward/pkg/dataaccess"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stewardbot/steward/pkg/logging"
	"golang.org/x/time/rate"
)

const (
	// ReplyTicketButtonID is the ID for the reply button on a relayed DM.
	ReplyTicketButtonID = "help_reply"

	// ReplyTicketModalID is the ID prefix for the reply modal.
	ReplyTicketModalID = "help_reply_modal"

	// replyInput is the ID of the reply text input.
	replyInput = "reply_message"

	// relayDirectionToUser labels messages relayed from a thread to a DM.
	relayDirectionToUser = "to_user"

	// relayDirectionToThread labels messages relayed from a DM to a thread.
	relayDirectionToThread = "to_thread"
)

// relayLimiters throttles the relay per thread so a flood in either direction
// cannot exhaust the Discord rate budget for the whole bot.
var relayLimiters = struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}{
	limiters: make(map[string]*rate.Limiter),
}

func relayAllowed(threadID string) bool {
	relayLimiters.mu.Lock()
	defer relayLimiters.mu.Unlock()

	l, ok := relayLimiters.limiters[threadID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 5)
		relayLimiters.limiters[threadID] = l
	}
	return l.Allow()
}

// releaseRelayLimiter drops the limiter of a thread whose ticket has been
// resolved, keeping the map bounded by the number of open tickets.
func releaseRelayLimiter(threadID string) {
	relayLimiters.mu.Lock()
	defer relayLimiters.mu.Unlock()
	delete(relayLimiters.limiters, threadID)
}

// messageCreateHandler relays messages between ticket threads and the
// requester's DMs.
func messageCreateHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Never relay the bot's own messages, or those of other bots.
		if m.Author == nil || m.Author.Bot {
			return
		}
		if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}

		var err error
		if m.GuildID == "" {
			err = relayDirectMessage(a, m)
		} else {
			err = relayThreadMessage(a, m)
		}
		if err != nil {
			a.Log().Error("Error relaying message",
				slog.String("channel_id", m.ChannelID),
				slog.String(logging.KeyError, err.Error()))
		}
	}
}

// relayDirectMessage forwards a DM from a requester into their open ticket
// thread.
func relayDirectMessage(a IApp, m *discordgo.MessageCreate) error {
	ctx := context.Background()

	ticket, err := a.TicketDal().GetLatestOpenTicketForUser(ctx, m.Author.ID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		// The registry may be behind the channel state, e.g. after a data
		// loss. Fall back to scanning the help channels.
		ticket, err = findTicketByScan(a, m.Author.ID)
	}
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		// No open ticket anywhere. Tell the user instead of dropping the
		// message silently.
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "no_ticket").Inc()
		if _, sendErr := a.Session().ChannelMessageSend(m.ChannelID,
			"⚠️ You have no open help ticket. Use `/help` on the server to open one."); sendErr != nil {
			return fmt.Errorf("error sending no-ticket notice: %w", sendErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("error finding ticket for DM: %w", err)
	}

	if !relayAllowed(ticket.ThreadID) {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "rate_limited").Inc()
		return nil
	}

	if _, err := a.Session().ChannelMessageSend(ticket.ThreadID,
		fmt.Sprintf("📨 **%s**: %s", m.Author.Username, m.Content)); err != nil {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "failed").Inc()
		return fmt.Errorf("error relaying DM to thread %s: %w", ticket.ThreadID, err)
	}

	monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "ok").Inc()
	return nil
}

// relayThreadMessage forwards a staff message from a ticket thread to the
// requester's DMs.
func relayThreadMessage(a IApp, m *discordgo.MessageCreate) error {
	ctx := context.Background()

	ticket, err := a.TicketDal().GetTicketByThread(ctx, m.GuildID, m.ChannelID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		// Every guild message that is not a known ticket lands here, so the
		// adoption fallback must not cost a REST call per ordinary chat
		// message.
		if !mayBeTicketThread(a, m.GuildID, m.ChannelID) {
			return nil
		}
		ticket, err = adoptThread(a, m.GuildID, m.ChannelID)
	}
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		// Not a ticket thread; nothing to relay.
		return nil
	}
	if err != nil {
		return fmt.Errorf("error finding ticket for thread %s: %w", m.ChannelID, err)
	}

	// The requester follows the conversation via DM, so echoing their own
	// relayed messages back would duplicate them.
	if m.Author.ID == ticket.UserID {
		return nil
	}

	if !ticket.Open() {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToUser, "resolved").Inc()
		if _, sendErr := a.Session().ChannelMessageSend(ticket.ThreadID,
			"⚠️ This ticket is resolved; messages here are no longer relayed. Ask the user to open a new ticket."); sendErr != nil {
			return fmt.Errorf("error sending resolved notice: %w", sendErr)
		}
		return nil
	}

	if !relayAllowed(ticket.ThreadID) {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToUser, "rate_limited").Inc()
		return nil
	}

	dm, err := a.Session().UserChannelCreate(ticket.UserID)
	if err != nil {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToUser, "failed").Inc()
		return fmt.Errorf("error creating DM channel for user %s: %w", ticket.UserID, err)
	}

	_, err = a.Session().ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("💬 **%s** (ticket %s): %s", m.Author.Username, ticket.Name(), m.Content),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Reply",
						Style:    discordgo.PrimaryButton,
						CustomID: fmt.Sprintf("%s:%s:%s", ReplyTicketButtonID, ticket.GuildID, ticket.ThreadID),
					},
				},
			},
		},
	})
	if err != nil {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToUser, "failed").Inc()

		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			// The user blocks DMs; surface that to the staff in the thread.
			warnDeliveryFailure(a, ticket.ThreadID, ticket.UserID)
			return nil
		}
		return fmt.Errorf("error relaying message to user %s: %w", ticket.UserID, err)
	}

	monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToUser, "ok").Inc()
	return nil
}

// mayBeTicketThread answers from the gateway cache whether a channel can be
// a ticket thread at all. Only a cache miss falls through to the REST-based
// adoption.
func mayBeTicketThread(a IApp, guildID, channelID string) bool {
	guild, err := a.GuildDal().GetGuildByID(context.Background(), guildID)
	if err != nil || guild.Helpdesk.ChannelID == "" {
		return false
	}

	channel, err := a.Session().State.Channel(channelID)
	if err != nil {
		// Not cached; let the adoption decide via REST.
		return true
	}
	return channel.IsThread() && channel.ParentID == guild.Helpdesk.ChannelID
}

// warnDeliveryFailure tells the staff in a ticket thread that the requester
// could not be reached via DM.
func warnDeliveryFailure(a IApp, threadID, userID string) {
	if _, err := a.Session().ChannelMessageSend(threadID,
		fmt.Sprintf("⚠️ Could not deliver a DM to <@%s>. They may have DMs from this server disabled.", userID)); err != nil {
		a.Log().Error("Error sending delivery warning to thread",
			slog.String("thread_id", threadID),
			slog.String(logging.KeyError, err.Error()))
	}
}

// replyTicketHandler is the handler for the reply button on a relayed DM. It
// collects the reply via a modal.
func replyTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	guildID, threadID, ok := splitRelayContext(customIDContext(i.MessageComponentData().CustomID))
	if !ok {
		return fmt.Errorf("reply button %s carries no ticket context", i.MessageComponentData().CustomID)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("%s:%s:%s", ReplyTicketModalID, guildID, threadID),
			Title:    "Reply to the staff team",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    replyInput,
							Label:       "Your message",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "What would you like to tell the staff?",
							Required:    true,
							MaxLength:   1500,
						},
					},
				},
			},
		},
	})
}

// replyTicketModalHandler relays a modal reply from the requester into the
// ticket thread.
func replyTicketModalHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	data := i.ModalSubmitData()

	guildID, threadID, ok := splitRelayContext(customIDContext(data.CustomID))
	if !ok {
		return fmt.Errorf("reply modal %s carries no ticket context", data.CustomID)
	}

	ticket, err := a.TicketDal().GetTicketByThread(ctx, guildID, threadID)
	if err != nil {
		return fmt.Errorf("error getting ticket for thread %s: %w", threadID, err)
	}

	if !ticket.Open() {
		return respondEphemeral(a, i, "⚠️ This ticket has been resolved in the meantime. Use `/help` on the server to open a new one.")
	}

	user := interactionUser(i)
	msg := modalInputValue(data, replyInput)

	if _, err := a.Session().ChannelMessageSend(ticket.ThreadID,
		fmt.Sprintf("📨 **%s**: %s", user.Username, msg)); err != nil {
		monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "failed").Inc()
		return fmt.Errorf("error relaying reply to thread %s: %w", ticket.ThreadID, err)
	}

	monitoring.TotalRelayedMessages.WithLabelValues(relayDirectionToThread, "ok").Inc()
	return respondEphemeral(a, i, "✅ Your reply has been passed on to the staff team.")
}

// splitRelayContext splits a "guildID:threadID" custom ID context.
func splitRelayContext(raw string) (guildID, threadID string, ok bool) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// findTicketByScan walks the help channels of every known guild looking for
// an active ticket thread opened for the given user. Found tickets are
// adopted back into the registry.
func findTicketByScan(a IApp, userID string) (*entities.Ticket, error) {
	ctx := context.Background()

	guildIDs, err := a.GuildDal().ListGuildIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing guilds: %w", err)
	}

	for _, guildID := range guildIDs {
		guild, err := a.GuildDal().GetGuildByID(ctx, guildID)
		if err != nil || guild.Helpdesk.ChannelID == "" {
			continue
		}

		active, err := a.Session().GuildThreadsActive(guildID)
		if err != nil {
			a.Log().Warn("Error listing active threads during scan",
				slog.String(logging.KeyGuildID, guildID),
				slog.String(logging.KeyError, err.Error()))
			continue
		}

		threads := make([]*discordgo.Channel, 0, len(active.Threads))
		for _, thread := range active.Threads {
			if thread.ParentID == guild.Helpdesk.ChannelID {
				threads = append(threads, thread)
			}
		}

		// Archived threads too; an archived ticket is resolved, but adopting
		// it keeps the registry complete for notice lookups.
		archived, err := a.Session().ThreadsArchived(guild.Helpdesk.ChannelID, nil, 100)
		if err != nil {
			a.Log().Warn("Error listing archived threads during scan",
				slog.String(logging.KeyGuildID, guildID),
				slog.String(logging.KeyError, err.Error()))
		} else {
			threads = append(threads, archived.Threads...)
		}

		for _, thread := range threads {
			ticket, err := adoptThread(a, guildID, thread.ID)
			if err != nil {
				continue
			}
			if ticket.UserID == userID && ticket.Open() {
				return ticket, nil
			}
		}
	}
	return nil, dataaccess.ErrTicketNotFound
}

// adoptThread reconstructs a ticket from a help channel thread and saves it
// back into the registry. The thread ID doubles as the ID of the notice
// message the thread was started on.
func adoptThread(a IApp, guildID, threadID string) (*entities.Ticket, error) {
	ctx := context.Background()

	guild, err := a.GuildDal().GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild configuration: %w", err)
	}
	if guild.Helpdesk.ChannelID == "" {
		return nil, dataaccess.ErrTicketNotFound
	}

	thread, err := a.Session().Channel(threadID)
	if err != nil || !thread.IsThread() || thread.ParentID != guild.Helpdesk.ChannelID {
		return nil, dataaccess.ErrTicketNotFound
	}

	notice, err := a.Session().ChannelMessage(guild.Helpdesk.ChannelID, threadID)
	if err != nil {
		return nil, dataaccess.ErrTicketNotFound
	}

	requesterID := requesterIDFromNotice(notice)
	if requesterID == "" {
		return nil, dataaccess.ErrTicketNotFound
	}

	ticket := &entities.Ticket{
		GuildID:         guildID,
		ChannelID:       guild.Helpdesk.ChannelID,
		ThreadID:        threadID,
		NoticeMessageID: notice.ID,
		UserID:          requesterID,
		Status:          entities.TicketStatusOpen,
		CreatedAt:       custom.Datetime(notice.Timestamp),
	}
	if thread.ThreadMetadata != nil && thread.ThreadMetadata.Archived {
		ticket.Status = entities.TicketStatusResolved
	}

	ticket.ID, ticket.Username = parseTicketName(thread.Name)
	if ticket.ID == 0 {
		ticket.ID, err = a.TicketDal().NextTicketID(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("error numbering adopted ticket: %w", err)
		}
	}
	if len(notice.Embeds) > 0 {
		if notice.Embeds[0].Author != nil && ticket.Username == "" {
			ticket.Username = notice.Embeds[0].Author.Name
		}
		for _, f := range notice.Embeds[0].Fields {
			if strings.Contains(f.Name, "Problem") {
				ticket.Reason = f.Value
			}
		}
	}

	if err := a.TicketDal().SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("error adopting ticket: %w", err)
	}

	a.Log().Info("Adopted ticket from channel scan",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyTicket, ticket.Name()))
	return ticket, nil
}

// requesterIDFromNotice extracts the requester's user ID from a ticket
// notice embed. Older notices wrapped the ID in a mention.
func requesterIDFromNotice(msg *discordgo.Message) string {
	if msg == nil || len(msg.Embeds) == 0 {
		return ""
	}
	for _, f := range msg.Embeds[0].Fields {
		if f.Name != requesterFieldName {
			continue
		}
		id := strings.TrimSpace(f.Value)
		id = strings.TrimPrefix(id, "<@")
		id = strings.TrimPrefix(id, "!")
		id = strings.TrimSuffix(id, ">")
		return id
	}
	return ""
}

// parseTicketName splits a "<id>-<username>" thread name.
func parseTicketName(name string) (int, string) {
	idStr, username, found := strings.Cut(name, "-")
	if !found {
		return 0, ""
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, ""
	}
	return id, username
}
