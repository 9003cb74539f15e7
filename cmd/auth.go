package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/youhedge/hedgetv/internal/session"
	"github.com/youhedge/hedgetv/internal/shared"
	"golang.org/x/time/rate"
)

// AuthLogin runs the device-code flow end to end: request a code, show it,
// then check login status on the server-provided interval until the user
// signs in on their second device or the code expires.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	<-r.session.Hydrated()
	if r.session.IsLoggedIn() {
		return r.writePlain("✓ Already logged in\n")
	}

	details, err := r.session.GetLoginDetails(ctx)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	status := session.NewStatus().Initialize(*details)
	r.logger.Info("login initialized", "interval", details.Interval, "expiresIn", details.ExpiresIn)

	r.writePlainHeader("Sign in to YouHedge")
	r.writePlain("Visit:  %s\n", details.VerificationURL)
	r.writePlain("Code:   %s\n\n", details.UserCode)

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(details.VerificationURL); err != nil {
			r.logger.Warn("failed to open browser", "err", err)
		}
	}

	interval := details.Interval
	if interval <= 0 {
		interval = 5
	}

	// One status check per interval, and give up once the device code expires.
	limiter := rate.NewLimiter(rate.Every(time.Duration(interval)*time.Second), 1)
	deadline := time.Now().Add(time.Duration(details.ExpiresIn) * time.Second)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: device code expired before sign-in", shared.ErrTimeout)
		}

		err := r.session.FinalizeLogin(ctx, *details)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrAuthPending) {
			r.logger.Debug("login still pending")
			continue
		}
		return fmt.Errorf("login failed: %w", err)
	}

	if auth := r.session.AuthDetails(); auth != nil {
		status = status.Finalize(*auth)
		r.logger.Info("login finalized", "phase", status.Phase())
	}

	return r.writePlain("✓ Logged in\n")
}

// AuthStatus reports whether credentials are held and when they expire.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	<-r.session.Hydrated()

	auth := r.session.AuthDetails()
	if auth == nil {
		return r.writePlain("✗ Not logged in\n")
	}

	if r.session.IsLoggedIn() {
		r.writePlain("✓ Logged in\n")
	} else {
		r.writePlain("✗ Session expired\n")
	}
	r.writePlain("Token expires: %s\n", auth.ExpiresAt.Format(time.RFC3339))
	if r.session.IsRefreshing() {
		r.writePlain("Refresh in progress\n")
	}
	return nil
}

// AuthRefresh forces an immediate token refresh with the stored refresh token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	<-r.session.Hydrated()

	auth := r.session.AuthDetails()
	if auth == nil {
		return fmt.Errorf("%w: nothing to refresh", shared.ErrNotAuthenticated)
	}

	if err := r.session.RefreshAuthDetails(ctx, *auth); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	fresh := r.session.AuthDetails()
	r.writePlain("✓ Token refreshed\n")
	return r.writePlain("Token expires: %s\n", fresh.ExpiresAt.Format(time.RFC3339))
}

// AuthLogout drops credentials and clears the session store.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	<-r.session.Hydrated()

	if err := r.session.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}
