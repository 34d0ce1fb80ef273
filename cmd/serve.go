package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/repositories"
	"github.com/desertthunder/partyq/internal/server"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the party queue server: the guest API, the Spotify client with
// its token store and caches, and (in dynamic mode) the loopback OAuth
// callback listener.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("cannot serve without Spotify credentials: %w", err)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sessions := repositories.NewSessionRepository(db)
	session, err := r.resolveSession(sessions, config, cmd)
	if err != nil {
		return err
	}

	tokens := services.NewTokenStore(config.Spotify.ClientID, config.Spotify.ClientSecret, "", nil)
	player := services.NewSpotifyClient(tokens, nil, r.logger)
	player.SetCacheTTL(config.Party.CacheTTL())

	var callback *server.CallbackServer
	if config.Spotify.RedirectURI == "" {
		callback = server.NewCallbackServer(r.logger)
	}
	flow := server.NewFlow(config.Spotify.ClientID, config.Spotify.ClientSecret, config.Spotify.RedirectURI, tokens, callback, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.RateLimit(config.Server.RateLimit, config.Server.Burst))

	api := server.NewAPI(server.APIOpts{
		Player:      player,
		Tokens:      tokens,
		Flow:        flow,
		Session:     session,
		Submissions: repositories.NewSubmissionRepository(db),
		Votes:       repositories.NewVoteRepository(db),
		SearchLimit: config.Party.SearchLimit,
		Logger:      r.logger,
	})
	api.Register(router)

	// Static mode serves the OAuth redirect on the main listener. Dynamic
	// mode leaves it to the loopback callback server the flow starts itself.
	if config.Spotify.RedirectURI != "" {
		router.Handler(flow)
	}

	httpServer := &http.Server{
		Addr:    config.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	r.logger.Info("party queue server started", "addr", config.Server.Addr(), "session", session.Code())
	r.writePlainHeader(fmt.Sprintf("partyq • %s", session.Name()))
	r.writePlain("Join code: %s\n", session.Code())
	r.writePlain("Guest API: http://%s\n", config.Server.Addr())
	r.writePlain("Press Ctrl+C to stop\n")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if callback != nil {
		if err := callback.Stop(shutdownCtx); err != nil {
			r.logger.Warn("callback listener shutdown failed", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// loadConfig reads the config file at path, falling back to the runner's
// config when the file does not exist.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return r.config, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// resolveSession resumes the most recent session or creates a new one.
func (r *Runner) resolveSession(sessions *repositories.SessionRepository, config *shared.Config, cmd *cli.Command) (*models.Session, error) {
	name := config.Party.Name
	if override := cmd.String("name"); override != "" {
		name = override
	}

	if !cmd.Bool("new-session") {
		session, err := sessions.Latest()
		if err == nil {
			r.logger.Info("resuming session", "code", session.Code(), "name", session.Name())
			return session, nil
		}
		if !errors.Is(err, shared.ErrSessionNotFound) {
			return nil, err
		}
	}

	session := models.NewSession(0, newJoinCode(), name)
	if err := sessions.Create(session); err != nil {
		return nil, err
	}

	r.logger.Info("session created", "code", session.Code(), "name", session.Name())
	return session, nil
}

// newJoinCode derives a short shareable code for guests.
func newJoinCode() string {
	id := strings.ReplaceAll(shared.GenerateID(), "-", "")
	return strings.ToUpper(id[:6])
}
