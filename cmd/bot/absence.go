package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/entities"
)

const (
	// AbsenceCmdName is the command for filing an absence notice.
	AbsenceCmdName = "absence"

	// absenceStartOption is the name of the start date option.
	absenceStartOption = "start"

	// absenceEndOption is the name of the end date option.
	absenceEndOption = "end"

	// absenceReasonOption is the name of the reason option.
	absenceReasonOption = "reason"
)

var (
	// absenceCmd is the command for filing an absence notice.
	absenceCmd = &discordgo.ApplicationCommand{
		Name:        AbsenceCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "File an absence notice for a period of time.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        absenceStartOption,
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "The first day of the absence (DD.MM.YYYY).",
				Required:    true,
			},
			{
				Name:        absenceEndOption,
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "The last day of the absence (DD.MM.YYYY).",
				Required:    true,
			},
			{
				Name:        absenceReasonOption,
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "The reason for the absence.",
				Required:    true,
			},
		},
	}
)

// absenceCmdController is the controller for the absence command.
func absenceCmdController(a IApp, i *discordgo.InteractionCreate) error {
	// Get the guild configuration.
	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	if !guild.ModuleEnabled(entities.ModuleAbsence) {
		return respondEphemeral(a, i, "⚠️ The absence module is currently disabled.")
	}

	// Ensure that the user has the required role, if one is configured.
	if guild.Absence.RequiredRoleID != "" && !hasRole(i.Member, guild.Absence.RequiredRoleID) {
		return respondEphemeral(a, i, "⚠️ You do not have the required role for this command.")
	}

	if guild.Absence.ChannelID == "" {
		return respondEphemeral(a, i, "⚠️ The absence channel has not been configured yet.\nPlease ask an administrator to run `/setup`.")
	}

	// Ensure that the configured channel still exists.
	channel, err := a.Session().Channel(guild.Absence.ChannelID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return respondEphemeral(a, i, "❌ The configured channel no longer exists.\nPlease ask an administrator to reconfigure it.")
		}
		return fmt.Errorf("error getting absence channel: %w", err)
	}

	opts := commandOptions(i)
	embed := buildAbsenceEmbed(i.Member.User,
		opts[absenceStartOption],
		opts[absenceEndOption],
		opts[absenceReasonOption],
	)

	if _, err := a.Session().ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		return fmt.Errorf("error sending absence notice: %w", err)
	}

	return respondEphemeral(a, i, "✅ Your absence has been filed.")
}

// buildAbsenceEmbed builds the absence notice posted to the configured
// channel.
func buildAbsenceEmbed(user *discordgo.User, start, end, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: "## 📅 New absence",
		Color:       0x0099ff,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    user.Username,
			IconURL: user.AvatarURL(""),
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🗓️ Start",
				Value:  start,
				Inline: true,
			},
			{
				Name:   "🔚 End",
				Value:  end,
				Inline: true,
			},
			{
				Name:  "📝 Reason",
				Value: reason,
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "🕒 Filed at",
		},
	}
}

// commandOptions collects the string options of a slash command by name.
func commandOptions(i *discordgo.InteractionCreate) map[string]string {
	opts := make(map[string]string)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			opts[opt.Name] = opt.StringValue()
		}
	}
	return opts
}
