package main

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/dataaccess"
	"github.com/stewardbot/steward/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTicketEmbed(t *testing.T) {
	user := &discordgo.User{ID: "42", Username: "gopher"}
	embed := buildTicketEmbed(user, "My flair is missing")

	require.NotNil(t, embed.Author)
	assert.Equal(t, "gopher", embed.Author.Name)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "My flair is missing", embed.Fields[0].Value)

	// The recovery scan relies on finding the requester's ID on the notice.
	notice := &discordgo.Message{Embeds: []*discordgo.MessageEmbed{embed}}
	assert.Equal(t, "42", requesterIDFromNotice(notice))
}

func TestBuildAbsenceEmbed(t *testing.T) {
	user := &discordgo.User{ID: "42", Username: "gopher"}
	embed := buildAbsenceEmbed(user, "01.09.2026", "05.09.2026", "Vacation")

	require.NotNil(t, embed.Author)
	assert.Equal(t, "gopher", embed.Author.Name)

	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "01.09.2026", embed.Fields[0].Value)
	assert.Equal(t, "05.09.2026", embed.Fields[1].Value)
	assert.Equal(t, "Vacation", embed.Fields[2].Value)
	assert.NotEmpty(t, embed.Timestamp)
}

func TestTicketForNotice(t *testing.T) {
	a := newRelayTestApp(t)

	ticket := &entities.Ticket{
		ID:              1,
		GuildID:         "guild",
		ChannelID:       "help",
		ThreadID:        "thread",
		NoticeMessageID: "notice",
		UserID:          "42",
		Username:        "gopher",
		Status:          entities.TicketStatusOpen,
	}
	require.NoError(t, a.TicketDal().SaveTicket(context.Background(), ticket))

	got, err := ticketForNotice(a, "guild", "notice")
	require.NoError(t, err)
	assert.Equal(t, "thread", got.ThreadID)

	// On a registry miss the lookup falls back to thread adoption; with no
	// help channel configured the adoption has nowhere to look, so an
	// unknown notice stays a miss instead of erroring out.
	_, err = ticketForNotice(a, "guild", "unknown")
	assert.ErrorIs(t, err, dataaccess.ErrTicketNotFound)
}

func TestResolveDeniedMessage(t *testing.T) {
	withRole := resolveDeniedMessage("123")
	assert.Contains(t, withRole, "<@&123>")

	// No configured role must not render a dangling empty mention.
	withoutRole := resolveDeniedMessage("")
	assert.NotContains(t, withoutRole, "<@&")
	assert.NotEmpty(t, withoutRole)
}
