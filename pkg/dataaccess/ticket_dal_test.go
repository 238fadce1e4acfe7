package dataaccess

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stewardbot/steward/pkg/custom"
	"github.com/stewardbot/steward/pkg/dataaccess/store"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stretchr/testify/require"
)

func newTicketDal(t *testing.T) TicketDal {
	t.Helper()

	f, err := store.Open(filepath.Join(t.TempDir(), "tickets.json"))
	require.NoError(t, err)

	prev := Tickets
	Tickets = f
	t.Cleanup(func() { Tickets = prev })

	return NewTicketDal()
}

func newTicket(id int, guildID, userID, threadID string, createdAt time.Time) *entities.Ticket {
	return &entities.Ticket{
		ID:              id,
		GuildID:         guildID,
		ChannelID:       "help-channel",
		ThreadID:        threadID,
		NoticeMessageID: "notice-" + threadID,
		UserID:          userID,
		Username:        "user-" + userID,
		Reason:          "need help",
		Status:          entities.TicketStatusOpen,
		CreatedAt:       custom.Datetime(createdAt),
	}
}

func TestTicketDal_GetTicketByThread(t *testing.T) {
	td := newTicketDal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-1", "user-a", "thread-1", now)))

	got, err := td.GetTicketByThread(ctx, "guild-1", "thread-1")
	require.NoError(t, err)
	require.Equal(t, "user-a", got.UserID)

	// A thread from another guild must not match.
	_, err = td.GetTicketByThread(ctx, "guild-2", "thread-1")
	require.ErrorIs(t, err, ErrTicketNotFound)

	_, err = td.GetTicketByThread(ctx, "guild-1", "thread-unknown")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketDal_GetOpenTicketByUser(t *testing.T) {
	td := newTicketDal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-1", "user-a", "thread-1", now.Add(-2*time.Hour))))
	require.NoError(t, td.SaveTicket(ctx, newTicket(2, "guild-1", "user-b", "thread-2", now.Add(-time.Hour))))

	// A staff reply must resolve to the requester's own ticket, never a
	// different requester's.
	got, err := td.GetOpenTicketByUser(ctx, "guild-1", "user-a")
	require.NoError(t, err)
	require.Equal(t, "thread-1", got.ThreadID)

	got, err = td.GetOpenTicketByUser(ctx, "guild-1", "user-b")
	require.NoError(t, err)
	require.Equal(t, "thread-2", got.ThreadID)

	// Resolved tickets are not relay targets.
	resolved := newTicket(3, "guild-1", "user-c", "thread-3", now)
	resolved.Status = entities.TicketStatusResolved
	require.NoError(t, td.SaveTicket(ctx, resolved))

	_, err = td.GetOpenTicketByUser(ctx, "guild-1", "user-c")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketDal_GetLatestOpenTicketForUser(t *testing.T) {
	td := newTicketDal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-1", "user-a", "thread-1", now.Add(-2*time.Hour))))
	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-2", "user-a", "thread-2", now.Add(-time.Hour))))

	// The newest open ticket wins across guilds.
	got, err := td.GetLatestOpenTicketForUser(ctx, "user-a")
	require.NoError(t, err)
	require.Equal(t, "guild-2", got.GuildID)

	_, err = td.GetLatestOpenTicketForUser(ctx, "user-x")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketDal_GetTicketByNotice(t *testing.T) {
	td := newTicketDal(t)
	ctx := context.Background()

	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-1", "user-a", "thread-1", time.Now().UTC())))

	got, err := td.GetTicketByNotice(ctx, "guild-1", "notice-thread-1")
	require.NoError(t, err)
	require.Equal(t, "thread-1", got.ThreadID)

	_, err = td.GetTicketByNotice(ctx, "guild-1", "notice-unknown")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketDal_NextTicketID(t *testing.T) {
	td := newTicketDal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := td.NextTicketID(ctx, "guild-1")
	require.NoError(t, err)
	require.Equal(t, 1, id)

	require.NoError(t, td.SaveTicket(ctx, newTicket(1, "guild-1", "user-a", "thread-1", now)))
	require.NoError(t, td.SaveTicket(ctx, newTicket(7, "guild-1", "user-b", "thread-2", now)))
	require.NoError(t, td.SaveTicket(ctx, newTicket(9, "guild-2", "user-c", "thread-3", now)))

	// Numbering is per guild.
	id, err = td.NextTicketID(ctx, "guild-1")
	require.NoError(t, err)
	require.Equal(t, 8, id)
}
