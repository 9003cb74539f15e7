// Package session owns the authentication lifecycle of the hedgetv client.
//
// [Status] is the login state machine the UI switches on: Pending until login
// details exist, Initialized while the user signs in on a second device,
// Finalized once credentials are held. Transitions are total; an illegal
// transition returns the status unchanged instead of failing, which keeps
// call sites branch-free.
//
// [Client] is the single authority for "are we logged in": it drives the
// device-code handshake, persists the session record through an injected
// storage.Db and keeps the access token fresh with a self-rescheduling refresh
// task. When several clients share one process, a [RefreshWorker] owns a
// single refresh chain and broadcasts fresh credentials to every subscriber.
package session
