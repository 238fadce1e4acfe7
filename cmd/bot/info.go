package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/entities"
)

// InfoCmdName is the command for showing the server information text.
const InfoCmdName = "info"

var (
	// infoCmd is the command for showing the server information text.
	infoCmd = &discordgo.ApplicationCommand{
		Name:        InfoCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "Show the server information text.",
	}
)

// infoCmdController is the controller for the info command.
func infoCmdController(a IApp, i *discordgo.InteractionCreate) error {
	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	if !guild.ModuleEnabled(entities.ModuleInfo) {
		return respondEphemeral(a, i, "⚠️ The info module is currently disabled.")
	}

	if guild.InfoText == "" {
		return respondEphemeral(a, i, "⚠️ No information text has been configured yet.\nPlease ask an administrator to run `/setup`.")
	}

	return respondEphemeralEmbed(a, i, &discordgo.MessageEmbed{
		Description: guild.InfoText,
		Color:       0x0099ff,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "ℹ️ Server Information",
		},
	})
}
