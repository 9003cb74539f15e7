// Package models defines the domain entities of the hedgetv client:
// login/auth credentials and the cached channel and playlist-item records.
package models
