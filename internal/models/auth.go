package models

import "time"

// LoginDetails is the result of initiating a device-code ("TV") login.
// The user enters UserCode at VerificationURL on a second device while the
// client polls for completion every Interval seconds.
// Created once per login attempt and discarded once finalized or abandoned.
type LoginDetails struct {
	DeviceCode      string `json:"deviceCode"`
	UserCode        string `json:"userCode"`
	VerificationURL string `json:"verificationUrl"`
	Interval        int    `json:"interval"`  // polling interval in seconds
	ExpiresIn       int    `json:"expiresIn"` // seconds until the device code expires
}

// AuthDetails is the result of a successful login or token refresh.
//
// ExpiresAt is always derived at construction time as now + ExpiresIn and never
// trusted from the wire. A refresh produces a new AuthDetails; the value is
// never edited in place.
type AuthDetails struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"` // seconds, as returned by the server
	ExpiresAt    time.Time `json:"expiresAt"`
}

// NewAuthDetails builds an AuthDetails with ExpiresAt computed from now.
func NewAuthDetails(accessToken, refreshToken string, expiresIn int, now time.Time) AuthDetails {
	return AuthDetails{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Valid reports whether the access token is still usable at the given instant.
func (a AuthDetails) Valid(at time.Time) bool {
	return a.AccessToken != "" && a.ExpiresAt.After(at)
}
