package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/custom"
	"github.com/stewardbot/steward/pkg/dataaccess"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stewardbot/steward/pkg/logging"
)

const (
	// HelpCmdName is the command for filing a help ticket.
	HelpCmdName = "help"

	// helpReasonOption is the name of the problem description option.
	helpReasonOption = "reason"

	// ResolveTicketButtonID is the ID for the resolve ticket button.
	ResolveTicketButtonID = "help_resolve"

	// ResolveTicketModalID is the ID prefix for the resolution reason modal.
	ResolveTicketModalID = "help_resolve_modal"

	// resolutionInput is the ID of the resolution reason text input.
	resolutionInput = "resolution_reason"

	// requesterFieldName is the name of the notice embed field carrying the
	// requester's user ID. The recovery scan matches tickets on this field,
	// so it must stay stable across releases.
	requesterFieldName = "Requester ID"

	// ResolveEmoji is the emoji used for the resolve button. (Check mark)
	ResolveEmoji = "✅"
)

var (
	// helpCmd is the command for filing a help ticket.
	helpCmd = &discordgo.ApplicationCommand{
		Name:        HelpCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "File a help ticket for the staff team.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        helpReasonOption,
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "Describe your problem.",
				Required:    true,
			},
		},
	}
)

// helpCmdController is the controller for the help command. It posts the
// ticket notice, opens the discussion thread and registers the ticket.
func helpCmdController(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	// Get the guild configuration.
	guild, err := a.GuildDal().GetGuildByID(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	if !guild.ModuleEnabled(entities.ModuleHelpdesk) {
		return respondEphemeral(a, i, "⚠️ The helpdesk module is currently disabled.")
	}

	if guild.Helpdesk.ChannelID == "" {
		return respondEphemeral(a, i, "⚠️ The help channel has not been configured yet.\nPlease ask an administrator to run `/setup`.")
	}

	// Ensure that the configured channel still exists.
	channel, err := a.Session().Channel(guild.Helpdesk.ChannelID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return respondEphemeral(a, i, "❌ The configured channel no longer exists.\nPlease ask an administrator to reconfigure it.")
		}
		return fmt.Errorf("error getting help channel: %w", err)
	}

	reason := commandOptions(i)[helpReasonOption]
	user := i.Member.User

	ticketID, err := a.TicketDal().NextTicketID(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting next ticket ID: %w", err)
	}

	ticket := &entities.Ticket{
		ID:        ticketID,
		GuildID:   i.GuildID,
		ChannelID: channel.ID,
		UserID:    user.ID,
		Username:  user.Username,
		Reason:    reason,
		Status:    entities.TicketStatusOpen,
		CreatedAt: custom.Datetime(time.Now().UTC()),
	}

	// Mention the support role if one is configured.
	content := ""
	if guild.Helpdesk.PingRoleID != "" {
		content = fmt.Sprintf("<@&%s>", guild.Helpdesk.PingRoleID)
	}

	msg, err := a.Session().ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{buildTicketEmbed(user, reason)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Mark as resolved", ResolveEmoji),
						Style:    discordgo.SuccessButton,
						CustomID: ResolveTicketButtonID,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending ticket notice: %w", err)
	}

	ticket.NoticeMessageID = msg.ID

	// Open the discussion thread on the notice.
	thread, err := a.Session().MessageThreadStartComplex(channel.ID, msg.ID, &discordgo.ThreadStart{
		Name:                ticket.Name(),
		AutoArchiveDuration: 60,
	})
	if err != nil {
		return fmt.Errorf("error starting ticket thread: %w", err)
	}

	ticket.ThreadID = thread.ID

	// Save the ticket.
	if err := a.TicketDal().SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("error saving ticket: %w", err)
	}

	// Explain the relay to the staff reading the thread.
	if _, err := a.Session().ChannelMessageSend(thread.ID,
		"💬 All messages in this thread are relayed to the requester as a direct message."); err != nil {
		a.Log().Error("Error sending thread boilerplate",
			slog.String(logging.KeyTicket, ticket.Name()),
			slog.String(logging.KeyError, err.Error()))
	}

	return respondEphemeralEmbed(a, i, &discordgo.MessageEmbed{
		Title:       "Ticket Created",
		Description: fmt.Sprintf("<@%s>, your help request has been filed.", user.ID),
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Ticket Name",
				Value:  ticket.Name(),
				Inline: true,
			},
			{
				Name:   "Discussion",
				Value:  fmt.Sprintf("<#%s>", ticket.ThreadID),
				Inline: true,
			},
		},
	})
}

// buildTicketEmbed builds the ticket notice posted to the help channel.
func buildTicketEmbed(user *discordgo.User, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: "## ❗ New help request",
		Color:       0xff0000,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    user.Username,
			IconURL: user.AvatarURL(""),
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "📝 Problem",
				Value: reason,
			},
			{
				Name:  "⚠️ Note",
				Value: "The requester is notified via DM when a staff member replies in the thread.",
			},
			{
				Name:  requesterFieldName,
				Value: user.ID,
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "🆘 Help request filed",
		},
	}
}

// ticketForNotice resolves the ticket behind a notice message. A registry
// miss falls back to thread adoption: a thread started on a message shares
// that message's ID, so the notice ID names the thread directly.
func ticketForNotice(a IApp, guildID, messageID string) (*entities.Ticket, error) {
	ticket, err := a.TicketDal().GetTicketByNotice(context.Background(), guildID, messageID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		return adoptThread(a, guildID, messageID)
	}
	return ticket, err
}

// resolveDeniedMessage is the rejection shown to users who may not resolve
// the ticket.
func resolveDeniedMessage(pingRoleID string) string {
	if pingRoleID == "" {
		return "⚠️ Only the requester or an administrator can resolve this ticket."
	}
	return fmt.Sprintf("⚠️ You do not have the role to resolve tickets. [<@&%s>]", pingRoleID)
}

// resolveTicketHandler is the handler for the resolve button on a ticket
// notice. It collects the resolution reason via a modal.
func resolveTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	// The button lives on the notice message, which identifies the ticket.
	ticket, err := ticketForNotice(a, i.GuildID, i.Message.ID)
	if err != nil {
		return fmt.Errorf("error getting ticket for notice %s: %w", i.Message.ID, err)
	}

	if !ticket.Open() {
		return respondEphemeral(a, i, "⚠️ This ticket is already resolved.")
	}

	guild, err := a.GuildDal().GetGuildByID(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	// Staff (and the requester themselves) may resolve the ticket.
	isStaff := guild.Helpdesk.PingRoleID != "" && hasRole(i.Member, guild.Helpdesk.PingRoleID)
	isAdmin := i.Member.Permissions&discordgo.PermissionAdministrator != 0
	if !isStaff && !isAdmin && i.Member.User.ID != ticket.UserID {
		return respondEphemeral(a, i, resolveDeniedMessage(guild.Helpdesk.PingRoleID))
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("%s:%s", ResolveTicketModalID, ticket.ThreadID),
			Title:    fmt.Sprintf("Resolve ticket %s", ticket.Name()),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    resolutionInput,
							Label:       "Resolution reason",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "How was this resolved?",
							Required:    true,
							MaxLength:   1000,
						},
					},
				},
			},
		},
	})
}

// resolveTicketModalHandler finalizes a resolution: DM the requester, edit
// the notice, post into the thread and archive it. The transition is
// terminal.
func resolveTicketModalHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	data := i.ModalSubmitData()

	threadID := customIDContext(data.CustomID)
	if threadID == "" {
		return fmt.Errorf("resolution modal %s carries no thread ID", data.CustomID)
	}

	ticket, err := a.TicketDal().GetTicketByThread(ctx, i.GuildID, threadID)
	if err != nil {
		return fmt.Errorf("error getting ticket for thread %s: %w", threadID, err)
	}

	if !ticket.Open() {
		return respondEphemeral(a, i, "⚠️ This ticket is already resolved.")
	}

	resolution := modalInputValue(data, resolutionInput)
	resolver := i.Member.User

	ticket.Status = entities.TicketStatusResolved
	ticket.ResolvedBy = resolver.ID
	ticket.Resolution = resolution
	ticket.ResolvedAt = custom.Datetime(time.Now().UTC())

	if err := a.TicketDal().SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("error saving resolved ticket: %w", err)
	}
	releaseRelayLimiter(ticket.ThreadID)

	// Notify the requester. A blocked DM is a warning in the thread, not a
	// failure of the resolution.
	if err := sendResolutionDM(a, ticket, resolver); err != nil {
		a.Log().Warn("Error sending resolution DM",
			slog.String(logging.KeyTicket, ticket.Name()),
			slog.String(logging.KeyError, err.Error()))
		warnDeliveryFailure(a, ticket.ThreadID, ticket.UserID)
	}

	// Edit the notice to its resolved visual state.
	if err := markNoticeResolved(a, ticket, resolver); err != nil {
		a.Log().Error("Error editing ticket notice",
			slog.String(logging.KeyTicket, ticket.Name()),
			slog.String(logging.KeyError, err.Error()))
	}

	// Post the resolution into the thread before archiving it.
	if _, err := a.Session().ChannelMessageSend(ticket.ThreadID,
		fmt.Sprintf("%s Resolved by <@%s>: %s", ResolveEmoji, resolver.ID, resolution)); err != nil {
		a.Log().Error("Error sending resolution notice to thread",
			slog.String(logging.KeyTicket, ticket.Name()),
			slog.String(logging.KeyError, err.Error()))
	}

	archived := true
	if _, err := a.Session().ChannelEditComplex(ticket.ThreadID, &discordgo.ChannelEdit{
		Archived: &archived,
	}); err != nil {
		return fmt.Errorf("error archiving ticket thread: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("%s Ticket %s has been resolved.", ResolveEmoji, ticket.Name()))
}

// sendResolutionDM tells the requester that their ticket was resolved.
func sendResolutionDM(a IApp, ticket *entities.Ticket, resolver *discordgo.User) error {
	dm, err := a.Session().UserChannelCreate(ticket.UserID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}

	_, err = a.Session().ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Description: fmt.Sprintf("## %s Your help request has been resolved", ResolveEmoji),
				Color:       0x00ff00,
				Fields: []*discordgo.MessageEmbedField{
					{
						Name:  "📝 Resolution",
						Value: ticket.Resolution,
					},
					{
						Name:  "Resolved by",
						Value: resolver.Username,
					},
				},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Footer: &discordgo.MessageEmbedFooter{
					Text: "🆘 Help request resolved",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending resolution DM: %w", err)
	}
	return nil
}

// markNoticeResolved edits the ticket notice to the resolved visual state and
// disables the resolve button.
func markNoticeResolved(a IApp, ticket *entities.Ticket, resolver *discordgo.User) error {
	msg, err := a.Session().ChannelMessage(ticket.ChannelID, ticket.NoticeMessageID)
	if err != nil {
		return fmt.Errorf("error getting ticket notice: %w", err)
	}

	if len(msg.Embeds) == 0 {
		return fmt.Errorf("ticket notice %s has no embed", ticket.NoticeMessageID)
	}

	embed := msg.Embeds[0]
	embed.Color = 0x00ff00
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{
			Name:   "Resolved by",
			Value:  fmt.Sprintf("<@%s>", resolver.ID),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "Resolution",
			Value:  ticket.Resolution,
			Inline: true,
		},
	)
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%s Resolved", ResolveEmoji),
	}

	embeds := []*discordgo.MessageEmbed{embed}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fmt.Sprintf("%s Resolved", ResolveEmoji),
					Style:    discordgo.SecondaryButton,
					Disabled: true,
					CustomID: ResolveTicketButtonID,
				},
			},
		},
	}

	if _, err := a.Session().ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ticket.ChannelID,
		ID:         ticket.NoticeMessageID,
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		return fmt.Errorf("error editing ticket notice: %w", err)
	}
	return nil
}

// customIDContext returns the handler-owned context of a custom ID: the part
// after the first ':'.
func customIDContext(customID string) string {
	key := customIDKey(customID)
	if len(customID) <= len(key)+1 {
		return ""
	}
	return customID[len(key)+1:]
}
