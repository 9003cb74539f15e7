package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
)

// now is swapped in tests that pin expiry arithmetic.
var now = time.Now

// InitializeLogin starts a device-code login and returns the details the user
// needs to sign in from another device (phone or desktop).
//
// POST {base}/auth/tv
func InitializeLogin(ctx context.Context, client *http.Client, baseURL string) (*models.LoginDetails, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/tv", strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: initialize login returned status %d", shared.ErrNetwork, resp.StatusCode)
	}

	var data loginDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode login details: %w", err)
	}

	return &models.LoginDetails{
		DeviceCode:      data.DeviceCode,
		UserCode:        data.UserCode,
		VerificationURL: data.VerificationURL,
		Interval:        data.Interval,
		ExpiresIn:       data.ExpiresIn,
	}, nil
}

// CheckLoginStatus performs a single check of whether the user has completed
// sign-in on the second device. A 4xx response means the login is not yet
// completed (or the device code is invalid) and wraps [shared.ErrAuthPending]
// so callers can keep waiting; other failures wrap [shared.ErrNetwork].
//
// GET {base}/auth/tv/{device_code}?interval={interval}
func CheckLoginStatus(ctx context.Context, client *http.Client, baseURL, deviceCode string, interval int) (*models.AuthDetails, error) {
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/auth/tv/%s?interval=%d", baseURL, deviceCode, interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: status %d", shared.ErrAuthPending, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: login status returned status %d", shared.ErrNetwork, resp.StatusCode)
	}

	var data loginStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode login status: %w", err)
	}

	auth := models.NewAuthDetails(data.AccessToken, data.RefreshToken, data.ExpiresIn, now())
	return &auth, nil
}

// RefreshToken exchanges a refresh token for fresh credentials. The refresh
// response carries no refresh token of its own, so the one used for the
// exchange is carried over into the returned AuthDetails.
//
// POST {base}/auth/tv/refresh-token
func RefreshToken(ctx context.Context, client *http.Client, baseURL, refreshToken string) (*models.AuthDetails, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/tv/refresh-token", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", shared.ErrRefreshFailed, shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w: status %d", shared.ErrRefreshFailed, shared.ErrNetwork, resp.StatusCode)
	}

	var data refreshTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	auth := models.NewAuthDetails(data.AccessToken, refreshToken, data.ExpiresIn, now())
	return &auth, nil
}
