package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/stewardbot/steward/pkg/entities"
)

const (
	// SetupCmdName is the command for the guild configuration wizard.
	SetupCmdName = "setup"

	// WizardModuleSelectID is the ID of the module select menu.
	WizardModuleSelectID = "setup_module_select"

	// WizardConfigureID is the ID prefix of the per-module configure button.
	WizardConfigureID = "setup_configure"

	// WizardToggleID is the ID prefix of the per-module enable/disable button.
	WizardToggleID = "setup_toggle"

	// WizardBackID is the ID of the back-to-overview button.
	WizardBackID = "setup_back"

	// WizardAbsenceModalID is the ID of the absence configuration modal.
	WizardAbsenceModalID = "setup_absence_modal"

	// WizardHelpModalID is the ID of the helpdesk configuration modal.
	WizardHelpModalID = "setup_helpdesk_modal"

	// WizardInfoModalID is the ID of the info text configuration modal.
	WizardInfoModalID = "setup_info_modal"

	// Wizard modal input IDs.
	wizardChannelInput  = "channel_id"
	wizardRoleInput     = "role_id"
	wizardInfoTextInput = "info_text"
)

var (
	// setupCmd is the command for the guild configuration wizard.
	setupCmd = &discordgo.ApplicationCommand{
		Name:        SetupCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "Configure the bot for this server.",
	}
)

// setupCmdController is the controller for the setup command. It opens a
// wizard session for the invoking administrator.
func setupCmdController(a IApp, i *discordgo.InteractionCreate) error {
	if i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		return respondEphemeral(a, i, "⚠️ Only administrators can run the setup.")
	}

	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	a.Wizard().Start(i)

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: wizardHomeView(guild),
	})
}

// wizardSessionFor resolves the live session behind a wizard interaction and
// resets its expiry. It returns nil after responding if the session has
// already expired.
func wizardSessionFor(a IApp, i *discordgo.InteractionCreate) (*wizardSession, error) {
	sess := a.Wizard().Get(i.GuildID, i.Member.User.ID)
	if sess == nil {
		return nil, respondEphemeral(a, i, "⌛ This setup session has expired. Run `/setup` to start a new one.")
	}
	a.Wizard().Touch(sess)
	return sess, nil
}

// wizardModuleSelectHandler switches the wizard to the selected module view.
func wizardModuleSelectHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return fmt.Errorf("module select carries no value")
	}

	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	sess.module = values[0]

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardModuleView(guild, sess.module),
	})
}

// wizardConfigureHandler opens the configuration modal of the shown module,
// prefilled with the current values.
func wizardConfigureHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	module := customIDContext(i.MessageComponentData().CustomID)
	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	var data *discordgo.InteractionResponseData
	switch module {
	case entities.ModuleAbsence:
		data = &discordgo.InteractionResponseData{
			CustomID: WizardAbsenceModalID,
			Title:    "Configure absence notices",
			Components: []discordgo.MessageComponent{
				wizardTextRow(wizardChannelInput, "Absence channel ID", guild.Absence.ChannelID, true),
				wizardTextRow(wizardRoleInput, "Required role ID (empty for everyone)", guild.Absence.RequiredRoleID, false),
			},
		}
	case entities.ModuleHelpdesk:
		data = &discordgo.InteractionResponseData{
			CustomID: WizardHelpModalID,
			Title:    "Configure the helpdesk",
			Components: []discordgo.MessageComponent{
				wizardTextRow(wizardChannelInput, "Help channel ID", guild.Helpdesk.ChannelID, true),
				wizardTextRow(wizardRoleInput, "Support role ID (pinged on new tickets)", guild.Helpdesk.PingRoleID, false),
			},
		}
	case entities.ModuleInfo:
		data = &discordgo.InteractionResponseData{
			CustomID: WizardInfoModalID,
			Title:    "Configure the info text",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  wizardInfoTextInput,
							Label:     "Information text",
							Style:     discordgo.TextInputParagraph,
							Value:     guild.InfoText,
							Required:  true,
							MaxLength: 2000,
						},
					},
				},
			},
		}
	default:
		return fmt.Errorf("unknown module %q in configure button", module)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
}

// wizardToggleHandler enables or disables the shown module.
func wizardToggleHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	ctx := context.Background()
	module := customIDContext(i.MessageComponentData().CustomID)

	guild, err := a.GuildDal().GetGuildByID(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	if guild.ModuleEnabled(module) {
		guild.DisableModule(module)
	} else {
		guild.EnableModule(module)
	}

	modules := guild.Modules
	guild, err = a.GuildDal().UpdateGuild(ctx, i.GuildID, &entities.GuildPatch{Modules: &modules})
	if err != nil {
		return fmt.Errorf("error updating modules: %w", err)
	}

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardModuleView(guild, module),
	})
}

// wizardBackHandler returns the wizard to the module overview.
func wizardBackHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}
	sess.module = ""

	guild, err := a.GuildDal().GetGuildByID(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardHomeView(guild),
	})
}

// wizardAbsenceModalHandler applies the absence configuration modal.
func wizardAbsenceModalHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	data := i.ModalSubmitData()
	channelID := modalInputValue(data, wizardChannelInput)
	roleID := modalInputValue(data, wizardRoleInput)

	if msg, err := validateWizardChannel(a, i.GuildID, channelID); err != nil {
		return err
	} else if msg != "" {
		return respondEphemeral(a, i, msg)
	}
	if msg, err := validateWizardRole(a, i.GuildID, roleID); err != nil {
		return err
	} else if msg != "" {
		return respondEphemeral(a, i, msg)
	}

	guild, err := a.GuildDal().UpdateGuild(context.Background(), i.GuildID, &entities.GuildPatch{
		AbsenceChannelID: &channelID,
		RequiredRoleID:   &roleID,
	})
	if err != nil {
		return fmt.Errorf("error updating absence configuration: %w", err)
	}

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardModuleView(guild, entities.ModuleAbsence),
	})
}

// wizardHelpModalHandler applies the helpdesk configuration modal.
func wizardHelpModalHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	data := i.ModalSubmitData()
	channelID := modalInputValue(data, wizardChannelInput)
	roleID := modalInputValue(data, wizardRoleInput)

	if msg, err := validateWizardChannel(a, i.GuildID, channelID); err != nil {
		return err
	} else if msg != "" {
		return respondEphemeral(a, i, msg)
	}
	if msg, err := validateWizardRole(a, i.GuildID, roleID); err != nil {
		return err
	} else if msg != "" {
		return respondEphemeral(a, i, msg)
	}

	guild, err := a.GuildDal().UpdateGuild(context.Background(), i.GuildID, &entities.GuildPatch{
		HelpChannelID:  &channelID,
		HelpPingRoleID: &roleID,
	})
	if err != nil {
		return fmt.Errorf("error updating helpdesk configuration: %w", err)
	}

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardModuleView(guild, entities.ModuleHelpdesk),
	})
}

// wizardInfoModalHandler applies the info text modal.
func wizardInfoModalHandler(a IApp, i *discordgo.InteractionCreate) error {
	sess, err := wizardSessionFor(a, i)
	if sess == nil {
		return err
	}

	text := modalInputValue(i.ModalSubmitData(), wizardInfoTextInput)

	guild, err := a.GuildDal().UpdateGuild(context.Background(), i.GuildID, &entities.GuildPatch{
		InfoText: &text,
	})
	if err != nil {
		return fmt.Errorf("error updating info text: %w", err)
	}

	a.Wizard().Bind(sess, i)
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: wizardModuleView(guild, entities.ModuleInfo),
	})
}

// validateWizardChannel checks that a channel ID names a text channel of the
// guild. It returns a user-facing message on rejection.
func validateWizardChannel(a IApp, guildID, channelID string) (string, error) {
	channel, err := a.Session().Channel(channelID)
	if err != nil {
		// A lookup failure here almost always means a bad ID rather than a
		// Discord outage; treat it as user input error.
		return fmt.Sprintf("❌ Channel `%s` was not found. Please enter a channel ID of this server.", channelID), nil
	}
	if channel.GuildID != guildID {
		return fmt.Sprintf("❌ Channel `%s` belongs to a different server.", channelID), nil
	}
	if channel.Type != discordgo.ChannelTypeGuildText {
		return fmt.Sprintf("❌ Channel <#%s> is not a text channel.", channelID), nil
	}
	return "", nil
}

// validateWizardRole checks that a role ID resolves within the guild. An
// empty ID clears the setting and is always valid.
func validateWizardRole(a IApp, guildID, roleID string) (string, error) {
	if roleID == "" {
		return "", nil
	}
	exists, err := guildRoleExists(a, guildID, roleID)
	if err != nil {
		return "", err
	}
	if !exists {
		return fmt.Sprintf("❌ Role `%s` was not found on this server.", roleID), nil
	}
	return "", nil
}

// wizardTextRow builds a single short text input row for a wizard modal.
func wizardTextRow(customID, label, value string, required bool) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  customID,
				Label:     label,
				Style:     discordgo.TextInputShort,
				Value:     value,
				Required:  required,
				MaxLength: 30,
			},
		},
	}
}

// wizardHomeView renders the module overview of the wizard.
func wizardHomeView(guild *entities.Guild) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{
			{
				Description: "## 🛠️ Server setup",
				Color:       0x0099ff,
				Fields: []*discordgo.MessageEmbedField{
					{
						Name:  fmt.Sprintf("%s Absence notices", wizardStatusEmoji(guild, entities.ModuleAbsence)),
						Value: wizardChannelSummary(guild.Absence.ChannelID),
					},
					{
						Name:  fmt.Sprintf("%s Helpdesk", wizardStatusEmoji(guild, entities.ModuleHelpdesk)),
						Value: wizardChannelSummary(guild.Helpdesk.ChannelID),
					},
					{
						Name:  fmt.Sprintf("%s Server information", wizardStatusEmoji(guild, entities.ModuleInfo)),
						Value: wizardInfoSummary(guild.InfoText),
					},
				},
				Footer: &discordgo.MessageEmbedFooter{
					Text: "The session closes after 10 minutes without input.",
				},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						CustomID:    WizardModuleSelectID,
						Placeholder: "Pick a module to configure",
						Options: []discordgo.SelectMenuOption{
							{
								Label:       "Absence notices",
								Value:       entities.ModuleAbsence,
								Description: "Channel and required role for absence notices.",
								Emoji:       &discordgo.ComponentEmoji{Name: "📅"},
							},
							{
								Label:       "Helpdesk",
								Value:       entities.ModuleHelpdesk,
								Description: "Channel and support role for help tickets.",
								Emoji:       &discordgo.ComponentEmoji{Name: "🆘"},
							},
							{
								Label:       "Server information",
								Value:       entities.ModuleInfo,
								Description: "The text shown by the info command.",
								Emoji:       &discordgo.ComponentEmoji{Name: "ℹ️"},
							},
						},
					},
				},
			},
		},
	}
}

// wizardModuleView renders the wizard view of a single module.
func wizardModuleView(guild *entities.Guild, module string) *discordgo.InteractionResponseData {
	var title string
	fields := make([]*discordgo.MessageEmbedField, 0, 2)

	switch module {
	case entities.ModuleAbsence:
		title = "## 📅 Absence notices"
		fields = append(fields,
			&discordgo.MessageEmbedField{
				Name:  "Channel",
				Value: wizardChannelSummary(guild.Absence.ChannelID),
			},
			&discordgo.MessageEmbedField{
				Name:  "Required role",
				Value: wizardRoleSummary(guild.Absence.RequiredRoleID),
			})
	case entities.ModuleHelpdesk:
		title = "## 🆘 Helpdesk"
		fields = append(fields,
			&discordgo.MessageEmbedField{
				Name:  "Channel",
				Value: wizardChannelSummary(guild.Helpdesk.ChannelID),
			},
			&discordgo.MessageEmbedField{
				Name:  "Support role",
				Value: wizardRoleSummary(guild.Helpdesk.PingRoleID),
			})
	case entities.ModuleInfo:
		title = "## ℹ️ Server information"
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Text",
			Value: wizardInfoSummary(guild.InfoText),
		})
	}

	toggleLabel := "Enable module"
	toggleStyle := discordgo.SuccessButton
	if guild.ModuleEnabled(module) {
		toggleLabel = "Disable module"
		toggleStyle = discordgo.DangerButton
	}

	return &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{
			{
				Description: title,
				Color:       0x0099ff,
				Fields:      fields,
				Footer: &discordgo.MessageEmbedFooter{
					Text: "The session closes after 10 minutes without input.",
				},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Configure",
						Style:    discordgo.PrimaryButton,
						CustomID: fmt.Sprintf("%s:%s", WizardConfigureID, module),
					},
					discordgo.Button{
						Label:    toggleLabel,
						Style:    toggleStyle,
						CustomID: fmt.Sprintf("%s:%s", WizardToggleID, module),
					},
					discordgo.Button{
						Label:    "Back",
						Style:    discordgo.SecondaryButton,
						CustomID: WizardBackID,
					},
				},
			},
		},
	}
}

func wizardStatusEmoji(guild *entities.Guild, module string) string {
	if guild.ModuleEnabled(module) {
		return "🟢"
	}
	return "🔴"
}

func wizardChannelSummary(channelID string) string {
	if channelID == "" {
		return "Not configured"
	}
	return fmt.Sprintf("<#%s>", channelID)
}

func wizardRoleSummary(roleID string) string {
	if roleID == "" {
		return "None"
	}
	return fmt.Sprintf("<@&%s>", roleID)
}

func wizardInfoSummary(text string) string {
	if text == "" {
		return "Not configured"
	}
	if len(text) > 80 {
		return text[:80] + "…"
	}
	return text
}
