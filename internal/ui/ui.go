package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/youhedge/hedgetv/internal/api"
	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/session"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/store"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	ChannelListView
	VideoListView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	session *session.Client
	service *api.YouTubeService
	cache   *store.Store
	width   int
	height  int

	status          session.Status
	channelList     list.Model
	videoList       list.Model
	selectedChannel *models.Channel
	syncing         bool
	err             error
	help            help.Model
	keys            keyMap
}

type loginStartedMsg struct {
	details *models.LoginDetails
	err     error
}

// loginTickMsg fires once per server-provided interval while login is pending.
type loginTickMsg struct{}

type loginFinalizedMsg struct {
	err error
}

type channelsFetchedMsg struct {
	channels []models.Channel
	err      error
}

type videosFetchedMsg struct {
	channelID string
	videos    []models.PlaylistItem
	err       error
}

type playedMsg struct {
	err error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, sess *session.Client, service *api.YouTubeService, cache *store.Store) *Model {
	return &Model{
		ctx:     ctx,
		view:    LoginView,
		session: sess,
		service: service,
		cache:   cache,
		status:  session.NewStatus(),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init waits for the stored session, then either jumps straight to the channel
// list or starts a device-code login.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		<-m.session.Hydrated()
		<-m.cache.Loaded()
		if m.session.IsLoggedIn() {
			return loginFinalizedMsg{}
		}
		details, err := m.session.GetLoginDetails(m.ctx)
		return loginStartedMsg{details: details, err: err}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.channelList.Width() != 0 {
			m.channelList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.videoList.Width() != 0 {
			m.videoList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case ChannelListView:
			return m.handleChannelListKeys(msg)
		case VideoListView:
			return m.handleVideoListKeys(msg)
		}

	case loginStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = m.status.Initialize(*msg.details)
		return m, m.loginTick()

	case loginTickMsg:
		return m, m.finalizeLogin()

	case loginFinalizedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, shared.ErrAuthPending) {
				return m, m.loginTick()
			}
			m.err = msg.err
			return m, tea.Quit
		}
		if auth := m.session.AuthDetails(); auth != nil {
			m.status = m.status.Finalize(*auth)
		}
		m.view = ChannelListView
		return m, m.loadChannels()

	case channelsFetchedMsg:
		m.syncing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.channels))
		for i, c := range msg.channels {
			items[i] = channelItem{channel: c}
		}
		if m.channelList.Width() == 0 {
			m.channelList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
			m.channelList.Title = "Subscriptions"
		} else {
			m.channelList.SetItems(items)
		}
		return m, nil

	case videosFetchedMsg:
		m.syncing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if m.selectedChannel == nil || m.selectedChannel.ID != msg.channelID {
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.videos))
		for i, v := range msg.videos {
			items[i] = videoItem{video: v}
		}
		if m.videoList.Width() == 0 {
			m.videoList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
		} else {
			m.videoList.SetItems(items)
		}
		m.videoList.Title = m.selectedChannel.Title
		m.view = VideoListView
		return m, nil

	case playedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == LoginView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoginView:
		return m.renderLogin()
	case ChannelListView:
		return m.renderChannelList()
	case VideoListView:
		return m.renderVideoList()
	default:
		return ""
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleChannelListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		if !m.syncing {
			m.syncing = true
			return m, m.syncChannels()
		}
		return m, nil
	case "enter":
		if selected := m.channelList.SelectedItem(); selected != nil {
			if ci, ok := selected.(channelItem); ok {
				channel := ci.channel
				m.selectedChannel = &channel
				return m, m.loadVideos(channel)
			}
		}
	}

	var cmd tea.Cmd
	m.channelList, cmd = m.channelList.Update(msg)
	return m, cmd
}

func (m *Model) handleVideoListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ChannelListView
		m.selectedChannel = nil
		m.err = nil
		return m, nil
	case "s":
		if !m.syncing && m.selectedChannel != nil {
			m.syncing = true
			return m, m.syncVideos(*m.selectedChannel)
		}
		return m, nil
	case "enter":
		if selected := m.videoList.SelectedItem(); selected != nil {
			if vi, ok := selected.(videoItem); ok {
				return m, m.play(vi.video)
			}
		}
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ChannelListView:
		m.channelList, cmd = m.channelList.Update(msg)
	case VideoListView:
		m.videoList, cmd = m.videoList.Update(msg)
	}
	return m, cmd
}

// loginTick schedules the next login-status check on the interval the server
// asked for, defaulting to five seconds when it gave none.
func (m *Model) loginTick() tea.Cmd {
	interval := 5
	if details := m.status.LoginDetails(); details != nil && details.Interval > 0 {
		interval = details.Interval
	}
	return tea.Tick(time.Duration(interval)*time.Second, func(time.Time) tea.Msg {
		return loginTickMsg{}
	})
}

func (m *Model) finalizeLogin() tea.Cmd {
	return func() tea.Msg {
		details := m.status.LoginDetails()
		if details == nil {
			return loginFinalizedMsg{err: shared.ErrAuthFailed}
		}
		return loginFinalizedMsg{err: m.session.FinalizeLogin(m.ctx, *details)}
	}
}

// loadChannels serves cached channels when any exist and falls through to a
// first fetch on a cold cache.
func (m *Model) loadChannels() tea.Cmd {
	return func() tea.Msg {
		if cached := m.cache.Channels(0, 0); len(cached) > 0 {
			return channelsFetchedMsg{channels: cached}
		}
		return m.doSyncChannels()
	}
}

// syncChannels fetches the continuation page (or re-fetches a stale one) and
// returns the merged cache contents.
func (m *Model) syncChannels() tea.Cmd {
	return func() tea.Msg {
		return m.doSyncChannels()
	}
}

func (m *Model) doSyncChannels() tea.Msg {
	var token string
	if page, ok := m.cache.NextChannelPage(); ok {
		token = page.Token
	}

	channels, err := m.service.GetChannels(m.ctx, token)
	if err != nil {
		return channelsFetchedMsg{err: err}
	}
	if err := m.cache.AddChannels(m.ctx, channels); err != nil {
		return channelsFetchedMsg{err: err}
	}
	return channelsFetchedMsg{channels: m.cache.Channels(0, 0)}
}

func (m *Model) loadVideos(channel models.Channel) tea.Cmd {
	return func() tea.Msg {
		if cached := m.cache.PlaylistItems(channel.ID, 0, 0); len(cached) > 0 {
			return videosFetchedMsg{channelID: channel.ID, videos: cached}
		}
		return m.doSyncVideos(channel)
	}
}

func (m *Model) syncVideos(channel models.Channel) tea.Cmd {
	return func() tea.Msg {
		return m.doSyncVideos(channel)
	}
}

func (m *Model) doSyncVideos(channel models.Channel) tea.Msg {
	var token string
	if page, ok := m.cache.NextVideoPage(channel.ID); ok {
		token = page.Token
	}

	videos, err := m.service.GetPlaylistItems(m.ctx, channel, token)
	if err != nil {
		return videosFetchedMsg{channelID: channel.ID, err: err}
	}
	if err := m.cache.AddPlaylistItems(m.ctx, videos); err != nil {
		return videosFetchedMsg{channelID: channel.ID, err: err}
	}
	return videosFetchedMsg{channelID: channel.ID, videos: m.cache.PlaylistItems(channel.ID, 0, 0)}
}

func (m *Model) play(video models.PlaylistItem) tea.Cmd {
	return func() tea.Msg {
		return playedMsg{err: shared.OpenBrowser(video.WatchURL())}
	}
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("Sign in to YouHedge")

	details := m.status.LoginDetails()
	if details == nil {
		return fmt.Sprintf("%s\n%s", title, styles.help.Render("Requesting a device code..."))
	}

	code := styles.code.Render(details.UserCode)
	instructions := fmt.Sprintf("Visit %s and enter the code above.", details.VerificationURL)
	waiting := styles.help.Render(fmt.Sprintf("Waiting for sign-in (checking every %ds)...", details.Interval))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s", title, code, instructions, waiting, helpView)
}

func (m *Model) renderChannelList() string {
	if m.channelList.Width() == 0 {
		return styles.help.Render("Loading subscriptions...")
	}

	var status string
	if m.syncing {
		status = styles.warn.Render("syncing...")
	} else if m.err != nil {
		status = styles.err.Render(fmt.Sprintf("sync failed: %v", m.err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", m.channelList.View(), status, helpView)
}

func (m *Model) renderVideoList() string {
	if m.videoList.Width() == 0 {
		return styles.help.Render("Loading videos...")
	}

	var status string
	if m.syncing {
		status = styles.warn.Render("syncing...")
	} else if m.err != nil {
		status = styles.err.Render(fmt.Sprintf("sync failed: %v", m.err))
	}

	helpKeys := []key.Binding{m.keys.play, m.keys.sync, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", m.videoList.View(), status, helpView)
}
