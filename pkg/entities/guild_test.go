package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuild_Modules(t *testing.T) {
	g := NewGuild("guild-1")
	require.True(t, g.ModuleEnabled(ModuleAbsence))
	require.True(t, g.ModuleEnabled(ModuleHelpdesk))
	require.False(t, g.ModuleEnabled(ModuleInfo))

	g.EnableModule(ModuleInfo)
	require.True(t, g.ModuleEnabled(ModuleInfo))

	// Enabling twice must not duplicate the entry.
	g.EnableModule(ModuleInfo)
	require.Len(t, g.Modules, 3)

	g.DisableModule(ModuleAbsence)
	require.False(t, g.ModuleEnabled(ModuleAbsence))
	require.True(t, g.ModuleEnabled(ModuleHelpdesk))
}

func TestGuild_Apply(t *testing.T) {
	channel := "chan-1"
	role := "role-1"

	g := NewGuild("guild-1")
	g.InfoText = "welcome"

	g.Apply(&GuildPatch{
		AbsenceChannelID: &channel,
		RequiredRoleID:   &role,
	})

	require.Equal(t, channel, g.Absence.ChannelID)
	require.Equal(t, role, g.Absence.RequiredRoleID)

	// Sibling fields are preserved by a partial patch.
	require.Equal(t, "welcome", g.InfoText)
	require.Equal(t, []string{ModuleAbsence, ModuleHelpdesk}, g.Modules)

	other := "chan-2"
	g.Apply(&GuildPatch{HelpChannelID: &other})
	require.Equal(t, channel, g.Absence.ChannelID)
	require.Equal(t, other, g.Helpdesk.ChannelID)
}
