package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stewardbot/steward/cmd/bot/config"
	"github.com/stewardbot/steward/cmd/bot/monitoring"
	"github.com/stewardbot/steward/pkg/dataaccess"
	"github.com/stewardbot/steward/pkg/logging"
	"github.com/stewardbot/steward/pkg/request"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"
)

// IApp is the interface for the application.
type IApp interface {
	// Log returns the application logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session

	// GuildDal returns the guild data access layer.
	GuildDal() dataaccess.GuildDal

	// TicketDal returns the ticket data access layer.
	TicketDal() dataaccess.TicketDal

	// RegisterGuildCommands registers the slash commands for one guild.
	RegisterGuildCommands(guildID string) error

	// Wizard returns the setup wizard session manager.
	Wizard() *wizardManager
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// wizard holds the live setup wizard sessions.
	wizard *wizardManager
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	a := &App{
		Logger: l,
		r:      r,
	}
	a.wizard = newWizardManager(a)
	return a
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	// Direct messages and message content are needed for the ticket relay.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for the health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Log())

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Log())
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(200, "", "", false)
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash controllers
		map[string]commandProcessor{
			AbsenceCmdName: absenceCmdController,
			HelpCmdName:    helpCmdController,
			InfoCmdName:    infoCmdController,
			SetupCmdName:   setupCmdController,
		},
		// Component controllers
		map[string]commandProcessor{
			ResolveTicketButtonID: resolveTicketHandler,
			ReplyTicketButtonID:   replyTicketHandler,
			WizardModuleSelectID:  wizardModuleSelectHandler,
			WizardConfigureID:     wizardConfigureHandler,
			WizardToggleID:        wizardToggleHandler,
			WizardBackID:          wizardBackHandler,
		},
		// Modal controllers
		map[string]commandProcessor{
			ResolveTicketModalID: resolveTicketModalHandler,
			ReplyTicketModalID:   replyTicketModalHandler,
			WizardAbsenceModalID: wizardAbsenceModalHandler,
			WizardHelpModalID:    wizardHelpModalHandler,
			WizardInfoModalID:    wizardInfoModalHandler,
		}))

	// Message create handler for the ticket relay.
	a.s.AddHandler(messageCreateHandler(a))

	// Catch-all event counter.
	a.s.AddHandler(func(_ *discordgo.Session, e any) {
		monitoring.TotalDiscordEvents.WithLabelValues(fmt.Sprintf("%T", e)).Inc()
	})
	return nil
}

// allCommands is the set of slash commands that the bot registers per guild.
func allCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		absenceCmd,
		helpCmd,
		infoCmd,
		setupCmd,
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		if err := a.RegisterGuildCommands(g.ID); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) RegisterGuildCommands(guildID string) error {
	for _, cmd := range allCommands() {
		if _, err := a.Session().ApplicationCommandCreate(config.ApplicationId, guildID, cmd); err != nil {
			return fmt.Errorf("error creating %s command for guild %s: %w", cmd.Name, guildID, err)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		registered, err := a.s.ApplicationCommands(config.ApplicationId, guild.ID)
		if err != nil {
			return fmt.Errorf("error getting commands for guild %s: %w", guild.ID, err)
		}

		for _, cmd := range registered {
			if err := a.s.ApplicationCommandDelete(config.ApplicationId, guild.ID, cmd.ID); err != nil {
				return fmt.Errorf("error deleting %s command for guild %s: %w", cmd.Name, guild.ID, err)
			}
		}
	}
	return nil
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) GuildDal() dataaccess.GuildDal {
	return dataaccess.NewGuildDal()
}

func (a *App) TicketDal() dataaccess.TicketDal {
	return dataaccess.NewTicketDal()
}

func (a *App) Wizard() *wizardManager {
	return a.wizard
}
