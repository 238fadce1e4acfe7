package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/cmd/bot/monitoring"
	"github.com/stewardbot/steward/pkg/logging"
)

// wizardTimeout is how long a setup session may sit idle before it expires.
const wizardTimeout = 10 * time.Minute

// wizardSession is one administrator's live setup session. Every interaction
// with the wizard message resets the expiry timer.
type wizardSession struct {
	guildID string
	userID  string

	// module is the module currently shown, or empty on the home view.
	module string

	// interaction is the latest interaction that was answered with a message
	// response. The expiry edit targets its token; an interaction answered
	// with a modal has no message behind it and must not be bound here.
	interaction *discordgo.Interaction

	timer *time.Timer
}

// wizardManager holds the live setup sessions, one per guild and user.
type wizardManager struct {
	a       IApp
	timeout time.Duration

	// disarm edits an expired session's wizard message.
	disarm func(sess *wizardSession)

	mu       sync.Mutex
	sessions map[string]*wizardSession
}

func newWizardManager(a IApp) *wizardManager {
	m := &wizardManager{
		a:        a,
		timeout:  wizardTimeout,
		sessions: make(map[string]*wizardSession),
	}
	m.disarm = m.disarmMessage
	return m
}

func wizardKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// Start opens a new session for the invoker. A previous session of the same
// user in the same guild is discarded.
func (m *wizardManager) Start(i *discordgo.InteractionCreate) *wizardSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := wizardKey(i.GuildID, i.Member.User.ID)
	if old, ok := m.sessions[key]; ok {
		old.timer.Stop()
	} else {
		monitoring.OpenWizardSessions.Inc()
	}

	sess := &wizardSession{
		guildID:     i.GuildID,
		userID:      i.Member.User.ID,
		interaction: i.Interaction,
	}
	sess.timer = time.AfterFunc(m.timeout, func() {
		m.expire(key)
	})
	m.sessions[key] = sess
	return sess
}

// Get returns the live session for the user, or nil if none exists.
func (m *wizardManager) Get(guildID, userID string) *wizardSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[wizardKey(guildID, userID)]
}

// Touch resets the expiry timer of a session.
func (m *wizardManager) Touch(sess *wizardSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.timer.Reset(m.timeout)
}

// Bind records the interaction whose response is the current wizard message.
// Callers bind only interactions they answer with a message response, never
// ones answered with a modal.
func (m *wizardManager) Bind(sess *wizardSession, i *discordgo.InteractionCreate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.interaction = i.Interaction
}

// End closes a session without touching the wizard message.
func (m *wizardManager) End(guildID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := wizardKey(guildID, userID)
	sess, ok := m.sessions[key]
	if !ok {
		return
	}
	sess.timer.Stop()
	delete(m.sessions, key)
	monitoring.OpenWizardSessions.Dec()
}

// expire removes a timed-out session and disarms the wizard message so stale
// components cannot be clicked.
func (m *wizardManager) expire(key string) {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
		monitoring.OpenWizardSessions.Dec()
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	m.disarm(sess)
}

// disarmMessage edits the wizard message of an expired session so no
// selectable components remain.
func (m *wizardManager) disarmMessage(sess *wizardSession) {
	content := "⌛ This setup session has expired. Run `/setup` to start a new one."
	if _, err := m.a.Session().InteractionResponseEdit(sess.interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &[]*discordgo.MessageEmbed{},
		Components: &[]discordgo.MessageComponent{},
	}); err != nil {
		m.a.Log().Warn("Error disarming expired wizard message",
			slog.String(logging.KeyGuildID, sess.guildID),
			slog.String(logging.KeyError, err.Error()))
	}
}
