package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/youhedge/hedgetv/internal/api"
	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/storage"
	"golang.org/x/oauth2"
)

const (
	// sessionRecordKey is the id of the session record in the injected store.
	sessionRecordKey = "session.Client"

	defaultRefreshLead = 300 * time.Second

	// Backoff bounds for retrying a failed scheduled refresh.
	retryBackoffInitial = 10 * time.Second
	retryBackoffMax     = 5 * time.Minute
)

// record is the persisted projection of the client.
type record struct {
	AuthDetails *models.AuthDetails `json:"authDetails,omitempty"`
	APIBaseURL  string              `json:"apiBaseUrl"`
	// RefreshTaskHandle identifies the refresh chain that was live when the
	// record was written. Opaque; a rehydrated client always starts its own
	// chain.
	RefreshTaskHandle string `json:"refreshTaskHandle,omitempty"`
}

// Opts configures a session [Client].
type Opts struct {
	BaseURL    string
	Db         storage.Db
	HTTPClient *http.Client
	Logger     *log.Logger

	// RefreshLead is how long before expiry the token refresh fires.
	// Defaults to 300 seconds.
	RefreshLead time.Duration

	// Worker, when set, owns the refresh chain on behalf of every client
	// subscribed to it; this client then only listens for broadcasts.
	Worker *RefreshWorker

	// Now is a clock override for tests.
	Now func() time.Time
}

// Client drives the device-code login handshake, persists credentials across
// runs and keeps the access token fresh without user intervention.
type Client struct {
	mu sync.Mutex

	baseURL string
	db      storage.Db
	hc      *http.Client
	logger  *log.Logger
	lead    time.Duration
	now     func() time.Time

	auth       *models.AuthDetails
	refreshing bool
	destroyed  bool

	timer   *time.Timer
	chainID string
	backoff time.Duration

	worker   *RefreshWorker
	workerID string

	hydrated chan struct{}
}

// NewClient constructs a client and begins hydrating it from the injected
// store. Hydration is asynchronous: IsLoggedIn may report false for a short
// window after construction; wait on [Client.Hydrated] before treating that as
// final.
func NewClient(opts Opts) (*Client, error) {
	if opts.Db == nil {
		return nil, fmt.Errorf("%w: session store is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RefreshLead <= 0 {
		opts.RefreshLead = defaultRefreshLead
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		baseURL:  opts.BaseURL,
		db:       opts.Db,
		hc:       opts.HTTPClient,
		logger:   shared.WithLogger(opts.Logger, "component", "session"),
		lead:     opts.RefreshLead,
		now:      opts.Now,
		worker:   opts.Worker,
		hydrated: make(chan struct{}),
	}

	go c.hydrate(context.Background())
	return c, nil
}

// Hydrated is closed once the stored session record has been loaded (or found
// absent) and any catch-up refresh has been attempted.
func (c *Client) Hydrated() <-chan struct{} {
	return c.hydrated
}

// hydrate loads the session record. A still-valid token is adopted as-is; an
// expired token with a refresh token triggers an immediate refresh; anything
// else leaves the client unauthenticated.
func (c *Client) hydrate(ctx context.Context) {
	defer close(c.hydrated)

	var rec record
	found, err := storage.Load(ctx, c.db, sessionRecordKey, &rec)
	if err != nil {
		c.logger.Warn("failed to load session record", "err", err)
		return
	}
	if !found || rec.AuthDetails == nil {
		return
	}

	if rec.APIBaseURL != "" {
		c.mu.Lock()
		if c.baseURL == "" {
			c.baseURL = rec.APIBaseURL
		}
		c.mu.Unlock()
	}

	auth := *rec.AuthDetails
	switch {
	case auth.Valid(c.now()):
		c.mu.Lock()
		c.auth = &auth
		c.mu.Unlock()
		c.StartTokenRefresh()
	case auth.RefreshToken != "":
		if err := c.RefreshAuthDetails(ctx, auth); err != nil {
			c.logger.Warn("failed to refresh stored session", "err", err)
			return
		}
		c.StartTokenRefresh()
	default:
		c.logger.Debug("stored session expired with no refresh token")
	}
}

// IsLoggedIn reports whether credentials are held and not yet expired.
// Pure read; safe to call before hydration completes (it returns false then).
func (c *Client) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth != nil && c.auth.ExpiresAt.After(c.now())
}

// IsRefreshing reports whether a token refresh is currently in flight.
func (c *Client) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// AuthDetails returns a copy of the current credentials, or nil.
func (c *Client) AuthDetails() *models.AuthDetails {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return nil
	}
	auth := *c.auth
	return &auth
}

// GetLoginDetails initiates a device-code login and returns the code and
// verification URL for the user. No local state changes; feed the result into
// [Status.Initialize] and later [Client.FinalizeLogin].
func (c *Client) GetLoginDetails(ctx context.Context) (*models.LoginDetails, error) {
	return api.InitializeLogin(ctx, c.hc, c.base())
}

// FinalizeLogin performs exactly one login-status check. On success the
// returned credentials become current, the session record is persisted and the
// refresh loop starts. A [shared.ErrAuthPending] failure means the user has
// not signed in yet; callers decide whether to retry on the server-provided
// interval.
func (c *Client) FinalizeLogin(ctx context.Context, details models.LoginDetails) error {
	auth, err := api.CheckLoginStatus(ctx, c.hc, c.base(), details.DeviceCode, details.Interval)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return fmt.Errorf("%w: session client destroyed", shared.ErrInvalidInput)
	}
	c.auth = auth
	c.mu.Unlock()

	if err := c.persist(ctx); err != nil {
		c.logger.Warn("failed to persist session after login", "err", err)
	}

	c.logger.Info("login finalized", "expiresAt", auth.ExpiresAt)
	c.StartTokenRefresh()
	return nil
}

// RefreshAuthDetails exchanges stale's refresh token for fresh credentials and
// replaces the current AuthDetails. On failure prior state is left untouched
// and the error propagates; no retry happens here.
func (c *Client) RefreshAuthDetails(ctx context.Context, stale models.AuthDetails) error {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return fmt.Errorf("%w: refresh already in flight", shared.ErrRefreshFailed)
	}
	c.refreshing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	auth, err := api.RefreshToken(ctx, c.hc, c.base(), stale.RefreshToken)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.destroyed {
		// A refresh that resolves after Destroy must not reanimate the session.
		c.mu.Unlock()
		return nil
	}
	c.auth = auth
	c.mu.Unlock()

	if err := c.persist(ctx); err != nil {
		c.logger.Warn("failed to persist session after refresh", "err", err)
	}

	c.logger.Debug("access token refreshed", "expiresAt", auth.ExpiresAt)
	return nil
}

// StartTokenRefresh starts (or restarts) the token refresh task. With a shared
// worker configured the chain is delegated there and this client only applies
// broadcast credentials; otherwise a local one-shot timer is scheduled to fire
// RefreshLead before expiry, clamped to zero, and reschedules itself after
// every attempt. Calling it again replaces any pending local timer, so there
// is never more than one chain per client.
func (c *Client) StartTokenRefresh() {
	c.mu.Lock()

	if c.destroyed || c.auth == nil {
		c.mu.Unlock()
		return
	}

	if c.worker != nil {
		auth := *c.auth
		if c.workerID == "" {
			c.workerID = c.worker.Subscribe(c.applyBroadcast)
		}
		c.mu.Unlock()
		c.worker.Post(Message{Type: StartTokenRefresh, Auth: &auth})
		return
	}

	c.backoff = 0
	c.scheduleLocked(c.refreshDelayLocked())
	c.mu.Unlock()
}

// refreshDelayLocked computes time-to-refresh for the current credentials:
// lead seconds before expiry, never negative.
func (c *Client) refreshDelayLocked() time.Duration {
	delay := c.auth.ExpiresAt.Sub(c.now()) - c.lead
	if delay < 0 {
		delay = 0
	}
	return delay
}

// scheduleLocked arms the refresh timer, replacing any pending one.
// Caller holds c.mu.
func (c *Client) scheduleLocked(delay time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}

	chainID := shared.GenerateID()
	c.chainID = chainID
	c.timer = time.AfterFunc(delay, func() { c.refreshStep(chainID) })
	c.logger.Debug("refresh scheduled", "in", delay, "chain", chainID)
}

// refreshStep is one link of the self-renewing refresh chain. A successful
// refresh reschedules against the new expiry; a failure backs off and retries
// rather than silently ending the chain.
func (c *Client) refreshStep(chainID string) {
	c.mu.Lock()
	if c.destroyed || c.chainID != chainID || c.auth == nil {
		c.mu.Unlock()
		return
	}
	stale := *c.auth
	c.mu.Unlock()

	err := c.RefreshAuthDetails(context.Background(), stale)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.chainID != chainID {
		return
	}

	if err != nil {
		if c.backoff == 0 {
			c.backoff = retryBackoffInitial
		} else if c.backoff *= 2; c.backoff > retryBackoffMax {
			c.backoff = retryBackoffMax
		}
		c.logger.Warn("scheduled refresh failed, retrying", "err", err, "backoff", c.backoff)
		c.scheduleLocked(c.backoff)
		return
	}

	c.backoff = 0
	c.scheduleLocked(c.refreshDelayLocked())
}

// applyBroadcast overwrites current credentials with a broadcast payload.
// Duplicate notifications are harmless: refreshes are monotonically newer by
// construction of the worker's chain.
func (c *Client) applyBroadcast(msg Message) {
	if msg.Type != TokenRefreshed || msg.Auth == nil {
		return
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	auth := *msg.Auth
	c.auth = &auth
	c.mu.Unlock()

	if err := c.persist(context.Background()); err != nil {
		c.logger.Warn("failed to persist broadcast credentials", "err", err)
	}
}

// Logout drops current credentials, stops the refresh chain and clears the
// backing store.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.auth = nil
	c.chainID = ""
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.worker != nil && c.workerID != "" {
		c.worker.Unsubscribe(c.workerID)
		c.workerID = ""
	}
	c.mu.Unlock()

	c.logger.Info("logged out")
	return c.db.Clear(ctx)
}

// Destroy cancels any pending refresh timer and persists final state. A
// refresh resolving after Destroy is discarded. Call on logical shutdown.
func (c *Client) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.chainID = ""
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.worker != nil && c.workerID != "" {
		c.worker.Unsubscribe(c.workerID)
		c.workerID = ""
	}
	c.mu.Unlock()

	return c.persist(context.Background())
}

// TokenSource exposes the client as an [oauth2.TokenSource] for the API
// transport. Token fails with [shared.ErrNotAuthenticated] when no usable
// credentials are held.
func (c *Client) TokenSource() oauth2.TokenSource {
	return tokenSource{c}
}

type tokenSource struct{ c *Client }

func (t tokenSource) Token() (*oauth2.Token, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if t.c.auth == nil || t.c.auth.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: t.c.auth.AccessToken,
		Expiry:      t.c.auth.ExpiresAt,
	}, nil
}

func (c *Client) base() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

func (c *Client) persist(ctx context.Context) error {
	c.mu.Lock()
	rec := record{
		AuthDetails:       c.auth,
		APIBaseURL:        c.baseURL,
		RefreshTaskHandle: c.chainID,
	}
	c.mu.Unlock()

	return c.db.Set(ctx, sessionRecordKey, rec)
}
