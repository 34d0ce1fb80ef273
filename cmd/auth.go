package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	defaultLoginTimeout = 2 * time.Minute
	loginPollInterval   = 2 * time.Second
)

type sessionStatus struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Authenticated bool   `json:"authenticated"`
	AuthPhase     string `json:"auth_phase"`
}

// AuthLogin starts an authorization attempt on the running server, opens the
// returned URL in the host's browser, and waits for the callback to land.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Post(ctx, "/api/auth/login", nil)
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	var login struct {
		AuthURL string `json:"auth_url"`
	}
	if err := resp.Decode(&login); err != nil {
		return err
	}

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize:\n%s\n", login.AuthURL)
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(login.AuthURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL to authorize:\n%s\n", login.AuthURL)
		}
	}

	r.writePlain("Waiting for authorization...\n")

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginPollInterval):
		}

		status, err := r.fetchSession(ctx)
		if err != nil {
			r.logger.Debug("session poll failed", "error", err)
			continue
		}

		switch {
		case status.Authenticated:
			r.logger.Info("authorization complete")
			return r.writePlain("✓ Host account connected\n")
		case status.AuthPhase == "failed":
			return fmt.Errorf("%w: authorization attempt failed, run 'partyq auth login' again", shared.ErrNotAuthenticated)
		}
	}

	return fmt.Errorf("%w: timed out waiting for authorization", shared.ErrTimeout)
}

// AuthStatus shows the session and the host's authorization state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := r.fetchSession(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("partyq • %s", status.Name))
	r.writePlain("Join code: %s\n", status.Code)
	if status.Authenticated {
		r.writePlain("Host account: ✓ Connected\n")
	} else {
		r.writePlain("Host account: ✗ Not connected (run 'partyq auth login')\n")
	}
	r.writePlain("Auth phase: %s\n", status.AuthPhase)

	return nil
}

// AuthLogout discards the host's tokens on the running server.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Post(ctx, "/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	r.logger.Info("logged out")
	return r.writePlain("✓ Host tokens cleared\n")
}

func (r *Runner) fetchSession(ctx context.Context) (*sessionStatus, error) {
	resp, err := r.api.Get(ctx, "/api/session")
	if err != nil {
		return nil, fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var status sessionStatus
	if err := resp.Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
