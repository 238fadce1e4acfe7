package main

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardSummaries(t *testing.T) {
	assert.Equal(t, "Not configured", wizardChannelSummary(""))
	assert.Equal(t, "<#123>", wizardChannelSummary("123"))

	assert.Equal(t, "None", wizardRoleSummary(""))
	assert.Equal(t, "<@&456>", wizardRoleSummary("456"))

	assert.Equal(t, "Not configured", wizardInfoSummary(""))
	assert.Equal(t, "short text", wizardInfoSummary("short text"))

	long := strings.Repeat("x", 200)
	truncated := wizardInfoSummary(long)
	assert.True(t, strings.HasSuffix(truncated, "…"))
	assert.Less(t, len(truncated), len(long))
}

func TestWizardStatusEmoji(t *testing.T) {
	guild := entities.NewGuild("guild")

	assert.Equal(t, "🟢", wizardStatusEmoji(guild, entities.ModuleAbsence))

	// The info module is off by default.
	assert.Equal(t, "🔴", wizardStatusEmoji(guild, entities.ModuleInfo))
}

func TestWizardModuleView_ToggleButton(t *testing.T) {
	guild := entities.NewGuild("guild")

	toggle := func(data *discordgo.InteractionResponseData) discordgo.Button {
		require.Len(t, data.Components, 1)
		row, ok := data.Components[0].(discordgo.ActionsRow)
		require.True(t, ok)
		require.Len(t, row.Components, 3)
		button, ok := row.Components[1].(discordgo.Button)
		require.True(t, ok)
		return button
	}

	enabled := toggle(wizardModuleView(guild, entities.ModuleHelpdesk))
	assert.Equal(t, "Disable module", enabled.Label)
	assert.Equal(t, discordgo.DangerButton, enabled.Style)

	disabled := toggle(wizardModuleView(guild, entities.ModuleInfo))
	assert.Equal(t, "Enable module", disabled.Label)
	assert.Equal(t, discordgo.SuccessButton, disabled.Style)
}

func TestWizardHomeView(t *testing.T) {
	guild := entities.NewGuild("guild")
	guild.Helpdesk.ChannelID = "999"

	data := wizardHomeView(guild)
	require.Len(t, data.Embeds, 1)
	require.Len(t, data.Embeds[0].Fields, 3)
	assert.Equal(t, "<#999>", data.Embeds[0].Fields[1].Value)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)

	require.Len(t, data.Components, 1)
	row, ok := data.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
	menu, ok := row.Components[0].(discordgo.SelectMenu)
	require.True(t, ok)
	assert.Equal(t, WizardModuleSelectID, menu.CustomID)
	assert.Len(t, menu.Options, 3)
}
