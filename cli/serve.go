// The serve command: inbound interaction endpoint plus launched workflows.

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minase/kotae/discord"
	"github.com/minase/kotae/server"
	"github.com/minase/kotae/workflow"
)

const shutdownGrace = 10 * time.Second

// Serve runs the interaction endpoint until ctx is cancelled.
func Serve(ctx context.Context, app *App) error {
	settings := app.Settings
	if settings.Discord.BotToken == "" || settings.Discord.AppID == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN and DISCORD_APP_ID are required")
	}
	if settings.Discord.PublicKey == "" {
		return fmt.Errorf("DISCORD_PUBLIC_KEY is required")
	}

	session, err := discord.NewSession(settings.Discord.BotToken)
	if err != nil {
		return err
	}

	runner := app.newRunner(func(token string) workflow.Sink {
		return discord.NewSink(session, settings.Discord.AppID, token, app.Logger)
	})

	// Runs detach from the request context: closing the HTTP exchange must
	// not cancel a stream in flight.
	launch := func(run workflow.Run) {
		go runner.Execute(context.Background(), run)
	}

	srv, err := server.NewServer(settings.Server.Addr, settings.Discord.PublicKey, launch, app.Logger)
	if err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
