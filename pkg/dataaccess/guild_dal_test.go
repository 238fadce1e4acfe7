package dataaccess

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stewardbot/steward/pkg/dataaccess/store"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stretchr/testify/require"
)

func newGuildDal(t *testing.T) GuildDal {
	t.Helper()

	f, err := store.Open(filepath.Join(t.TempDir(), "guilds.json"))
	require.NoError(t, err)

	prev := Guilds
	Guilds = f
	t.Cleanup(func() { Guilds = prev })

	return NewGuildDal()
}

func TestGuildDal_GetGuildByID_Defaults(t *testing.T) {
	gd := newGuildDal(t)
	ctx := context.Background()

	guild, err := gd.GetGuildByID(ctx, "guild-1")
	require.NoError(t, err)
	require.Equal(t, "guild-1", guild.ID)
	require.Empty(t, guild.Absence.ChannelID)
	require.Empty(t, guild.Helpdesk.ChannelID)
	require.Empty(t, guild.InfoText)
	require.Equal(t, []string{entities.ModuleAbsence, entities.ModuleHelpdesk}, guild.Modules)

	// Stable across repeated reads.
	again, err := gd.GetGuildByID(ctx, "guild-1")
	require.NoError(t, err)
	require.Equal(t, guild, again)
}

func TestGuildDal_UpdateGuild_Merges(t *testing.T) {
	gd := newGuildDal(t)
	ctx := context.Background()

	channel := "chan-1"
	role := "role-1"
	_, err := gd.UpdateGuild(ctx, "guild-1", &entities.GuildPatch{
		AbsenceChannelID: &channel,
		RequiredRoleID:   &role,
	})
	require.NoError(t, err)

	info := "welcome text"
	_, err = gd.UpdateGuild(ctx, "guild-1", &entities.GuildPatch{InfoText: &info})
	require.NoError(t, err)

	guild, err := gd.GetGuildByID(ctx, "guild-1")
	require.NoError(t, err)

	// Fields from the first patch survive the second.
	require.Equal(t, channel, guild.Absence.ChannelID)
	require.Equal(t, role, guild.Absence.RequiredRoleID)
	require.Equal(t, info, guild.InfoText)
	require.Equal(t, []string{entities.ModuleAbsence, entities.ModuleHelpdesk}, guild.Modules)
}

func TestGuildDal_ListGuildIDs(t *testing.T) {
	gd := newGuildDal(t)
	ctx := context.Background()

	ids, err := gd.ListGuildIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, gd.SaveGuild(ctx, entities.NewGuild("guild-b")))
	require.NoError(t, gd.SaveGuild(ctx, entities.NewGuild("guild-a")))

	ids, err = gd.ListGuildIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"guild-a", "guild-b"}, ids)
}
