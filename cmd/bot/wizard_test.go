package main

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWizardManager() *wizardManager {
	return &wizardManager{
		timeout:  time.Hour,
		disarm:   func(*wizardSession) {},
		sessions: make(map[string]*wizardSession),
	}
}

func wizardInteraction(guildID, userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			GuildID: guildID,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: userID},
			},
		},
	}
}

func TestWizardManager_StartAndGet(t *testing.T) {
	m := newTestWizardManager()

	require.Nil(t, m.Get("guild", "user"))

	sess := m.Start(wizardInteraction("guild", "user"))
	require.NotNil(t, sess)
	assert.Equal(t, "guild", sess.guildID)
	assert.Equal(t, "user", sess.userID)

	assert.Same(t, sess, m.Get("guild", "user"))

	// Sessions are scoped per guild and user.
	assert.Nil(t, m.Get("guild", "other"))
	assert.Nil(t, m.Get("other", "user"))
}

func TestWizardManager_RestartReplacesSession(t *testing.T) {
	m := newTestWizardManager()

	first := m.Start(wizardInteraction("guild", "user"))
	first.module = "helpdesk"

	second := m.Start(wizardInteraction("guild", "user"))
	require.NotSame(t, first, second)

	got := m.Get("guild", "user")
	assert.Same(t, second, got)
	assert.Empty(t, got.module)
	assert.Len(t, m.sessions, 1)
}

func TestWizardManager_End(t *testing.T) {
	m := newTestWizardManager()

	m.Start(wizardInteraction("guild", "user"))
	m.End("guild", "user")
	assert.Nil(t, m.Get("guild", "user"))

	// Ending a missing session is a no-op.
	m.End("guild", "user")
}

func TestWizardManager_BindRecordsInteraction(t *testing.T) {
	m := newTestWizardManager()

	first := wizardInteraction("guild", "user")
	sess := m.Start(first)
	assert.Same(t, first.Interaction, sess.interaction)

	// A touch alone must not move the bound token. The touching interaction
	// may have been answered with a modal, which leaves no message behind
	// its token for the expiry edit to target.
	second := wizardInteraction("guild", "user")
	m.Touch(sess)
	assert.Same(t, first.Interaction, sess.interaction)

	m.Bind(sess, second)
	assert.Same(t, second.Interaction, sess.interaction)
}

func TestWizardManager_Expire(t *testing.T) {
	disarmed := make(chan *wizardSession, 1)

	m := newTestWizardManager()
	m.timeout = 10 * time.Millisecond
	m.disarm = func(sess *wizardSession) {
		disarmed <- sess
	}

	sess := m.Start(wizardInteraction("guild", "user"))

	select {
	case got := <-disarmed:
		assert.Same(t, sess, got)
	case <-time.After(time.Second):
		t.Fatal("session did not expire")
	}
	assert.Nil(t, m.Get("guild", "user"))
}
