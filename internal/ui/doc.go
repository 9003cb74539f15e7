// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing subscriptions:
//  1. [LoginView] : Show the device code and verification URL, polling until sign-in completes
//  2. [ChannelListView] : Browse cached subscription channels, loading more on demand
//  3. [VideoListView] : Browse a channel's uploads and open one in the browser
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Login status checks are paced by the server-provided interval via tea.Tick, so the
// poll loop never hammers the API.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
