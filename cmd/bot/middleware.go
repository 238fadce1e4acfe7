package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/stewardbot/steward/cmd/bot/monitoring"
	"github.com/stewardbot/steward/pkg/logging"
	"github.com/stewardbot/steward/pkg/request"
)

// commandProcessor is the processor for a single interaction.
type commandProcessor func(a IApp, i *discordgo.InteractionCreate) error

// Controller is a http handler.
type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a IApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage("Internal server error")); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler routes interactions to the registered processors. Slash
// commands are keyed by command name; components and modals are keyed by the
// custom ID prefix (the part before the first ':'). Every error is handled
// here, exactly once, as a private reply to the interacting user.
func interactionHandler(a IApp,
	slashControllers map[string]commandProcessor,
	componentControllers map[string]commandProcessor,
	modalControllers map[string]commandProcessor,
) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		var key string
		var controllers map[string]commandProcessor

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			key = i.ApplicationCommandData().Name
			controllers = slashControllers
		case discordgo.InteractionMessageComponent:
			key = customIDKey(i.MessageComponentData().CustomID)
			controllers = componentControllers
		case discordgo.InteractionModalSubmit:
			key = customIDKey(i.ModalSubmitData().CustomID)
			controllers = modalControllers
		default:
			return
		}

		a.Log().Debug("Handling interaction " + key)

		controller, ok := controllers[key]
		if !ok {
			a.Log().Error("No controller found for interaction", slog.String("key", key))

			if err := respondSlashError(a, i); err != nil {
				a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		t := time.Now().UTC()
		defer func() {
			monitoring.DiscordCommandDuration.WithLabelValues(key).Observe(time.Since(t).Seconds())
		}()

		if err := controller(a, i); err != nil {
			a.Log().Error(fmt.Sprintf("Error processing interaction %s", key),
				slog.String(logging.KeyError, err.Error()))

			if err := respondSlashError(a, i); err != nil {
				a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
		}
	}
}

// customIDKey returns the routing key of a component or modal custom ID. Any
// text after the first ':' is handler-owned context (ticket references and the
// like), not part of the route.
func customIDKey(customID string) string {
	if idx := strings.Index(customID, ":"); idx >= 0 {
		return customID[:idx]
	}
	return customID
}
