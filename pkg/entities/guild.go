package entities

// Module names that can be enabled per guild.
const (
	// ModuleAbsence is the absence notice module.
	ModuleAbsence = "absence"

	// ModuleHelpdesk is the help ticket module.
	ModuleHelpdesk = "helpdesk"

	// ModuleInfo is the server information module.
	ModuleInfo = "info"
)

// Guild is the configuration for a guild.
type Guild struct {
	// ID is the ID of the guild.
	ID string `json:"id"`

	// Absence is the absence notice configuration.
	Absence AbsenceConfig `json:"absence"`

	// Helpdesk is the help ticket configuration.
	Helpdesk HelpdeskConfig `json:"helpdesk"`

	// InfoText is the free-form text shown by the info command.
	InfoText string `json:"info_text,omitempty"`

	// Modules is the set of modules enabled for the guild.
	Modules []string `json:"modules"`
}

// NewGuild creates the default configuration for a guild. The absence and
// helpdesk modules are enabled by default; all channels and roles are unset.
func NewGuild(id string) *Guild {
	return &Guild{
		ID:      id,
		Modules: []string{ModuleAbsence, ModuleHelpdesk},
	}
}

// ModuleEnabled reports whether the named module is enabled for the guild.
func (g *Guild) ModuleEnabled(name string) bool {
	for _, m := range g.Modules {
		if m == name {
			return true
		}
	}
	return false
}

// EnableModule adds the named module to the enabled set.
func (g *Guild) EnableModule(name string) {
	if g.ModuleEnabled(name) {
		return
	}
	g.Modules = append(g.Modules, name)
}

// DisableModule removes the named module from the enabled set.
func (g *Guild) DisableModule(name string) {
	modules := make([]string, 0, len(g.Modules))
	for _, m := range g.Modules {
		if m != name {
			modules = append(modules, m)
		}
	}
	g.Modules = modules
}

// Apply merges the patch into the guild. Fields not set on the patch are
// preserved.
func (g *Guild) Apply(p *GuildPatch) {
	if p == nil {
		return
	}

	if p.AbsenceChannelID != nil {
		g.Absence.ChannelID = *p.AbsenceChannelID
	}
	if p.RequiredRoleID != nil {
		g.Absence.RequiredRoleID = *p.RequiredRoleID
	}
	if p.HelpChannelID != nil {
		g.Helpdesk.ChannelID = *p.HelpChannelID
	}
	if p.HelpPingRoleID != nil {
		g.Helpdesk.PingRoleID = *p.HelpPingRoleID
	}
	if p.InfoText != nil {
		g.InfoText = *p.InfoText
	}
	if p.Modules != nil {
		g.Modules = *p.Modules
	}
}

// AbsenceConfig is the configuration for the absence notice module.
type AbsenceConfig struct {
	// ChannelID is the ID of the channel that absence notices are posted to.
	ChannelID string `json:"channel_id,omitempty"`

	// RequiredRoleID is the ID of the role required to file an absence notice.
	RequiredRoleID string `json:"required_role_id,omitempty"`
}

// HelpdeskConfig is the configuration for the help ticket module.
type HelpdeskConfig struct {
	// ChannelID is the ID of the channel that help tickets are posted to.
	ChannelID string `json:"channel_id,omitempty"`

	// PingRoleID is the ID of the role mentioned when a new ticket is posted.
	PingRoleID string `json:"ping_role_id,omitempty"`
}

// GuildPatch is a partial update of a guild configuration. Nil fields are
// left untouched when the patch is applied.
type GuildPatch struct {
	AbsenceChannelID *string
	RequiredRoleID   *string
	HelpChannelID    *string
	HelpPingRoleID   *string
	InfoText         *string
	Modules          *[]string
}
