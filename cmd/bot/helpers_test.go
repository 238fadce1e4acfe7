package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomIDKey(t *testing.T) {
	tests := []struct {
		customID string
		want     string
	}{
		{customID: "help_resolve", want: "help_resolve"},
		{customID: "help_resolve_modal:12345", want: "help_resolve_modal"},
		{customID: "help_reply:guild:thread", want: "help_reply"},
		{customID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.customID, func(t *testing.T) {
			assert.Equal(t, tt.want, customIDKey(tt.customID))
		})
	}
}

func TestCustomIDContext(t *testing.T) {
	assert.Equal(t, "", customIDContext("help_resolve"))
	assert.Equal(t, "12345", customIDContext("help_resolve_modal:12345"))
	assert.Equal(t, "guild:thread", customIDContext("help_reply:guild:thread"))
}

func TestModalInputValue(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{
		CustomID: "help_resolve_modal:123",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					&discordgo.TextInput{
						CustomID: resolutionInput,
						Value:    "Rebooted the thing",
					},
				},
			},
		},
	}

	assert.Equal(t, "Rebooted the thing", modalInputValue(data, resolutionInput))
	assert.Empty(t, modalInputValue(data, "unknown_input"))
}

func TestHasRole(t *testing.T) {
	member := &discordgo.Member{
		Roles: []string{"111", "222"},
	}

	assert.True(t, hasRole(member, "222"))
	assert.False(t, hasRole(member, "333"))
}

func TestInteractionUser(t *testing.T) {
	guildUser := &discordgo.User{ID: "1"}
	dmUser := &discordgo.User{ID: "2"}

	fromGuild := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: guildUser},
		},
	}
	fromDM := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			User: dmUser,
		},
	}

	require.NotNil(t, interactionUser(fromGuild))
	assert.Equal(t, "1", interactionUser(fromGuild).ID)

	require.NotNil(t, interactionUser(fromDM))
	assert.Equal(t, "2", interactionUser(fromDM).ID)
}
