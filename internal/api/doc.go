// Package api speaks the YouHedge HTTP API.
//
// The three auth calls (initialize login, check login status, refresh token)
// are stateless package functions; the data calls hang off [YouTubeService],
// whose client injects the X-YouHedge-Token header through [Transport] from an
// oauth2.TokenSource owned by the session client.
package api
