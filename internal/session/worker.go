package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/youhedge/hedgetv/internal/api"
	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
)

// MessageType discriminates worker messages.
type MessageType int

const (
	// StartTokenRefresh asks the worker to own the refresh chain for the
	// credentials carried in the message.
	StartTokenRefresh MessageType = iota
	// TokenRefreshed is broadcast to subscribers with fresh credentials.
	TokenRefreshed
)

func (t MessageType) String() string {
	switch t {
	case StartTokenRefresh:
		return "START_TOKEN_REFRESH"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "unknown"
	}
}

// Message is the unit of communication between clients and the worker.
type Message struct {
	ID   string
	Type MessageType
	Auth *models.AuthDetails
}

// WorkerOpts configures a [RefreshWorker].
type WorkerOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger

	// RefreshLead is how long before expiry the refresh fires. Defaults to
	// 300 seconds.
	RefreshLead time.Duration

	// Now is a clock override for tests.
	Now func() time.Time
}

// RefreshWorker owns the single token refresh chain of a process. Any number
// of session clients may request a refresh chain; the worker collapses them
// into one, refreshes ahead of expiry and broadcasts the fresh credentials to
// every subscriber. Receiving the same broadcast twice is safe: subscribers
// overwrite their credentials wholesale.
type RefreshWorker struct {
	mu sync.Mutex

	baseURL string
	hc      *http.Client
	logger  *log.Logger
	lead    time.Duration
	now     func() time.Time

	auth    *models.AuthDetails
	timer   *time.Timer
	chainID string
	backoff time.Duration
	stopped bool

	subscribers map[string]func(Message)
}

// NewRefreshWorker constructs an idle worker. The chain starts on the first
// StartTokenRefresh message.
func NewRefreshWorker(opts WorkerOpts) *RefreshWorker {
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

	return &RefreshWorker{
		baseURL:     opts.BaseURL,
		hc:          opts.HTTPClient,
		logger:      shared.WithLogger(opts.Logger, "component", "refresh-worker"),
		lead:        opts.RefreshLead,
		now:         opts.Now,
		subscribers: make(map[string]func(Message)),
	}
}

// Subscribe registers fn to receive broadcasts and returns the subscription
// id. fn is invoked from the worker's refresh goroutine; keep it quick.
func (w *RefreshWorker) Subscribe(fn func(Message)) string {
	id := shared.GenerateID()
	w.mu.Lock()
	w.subscribers[id] = fn
	w.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (w *RefreshWorker) Unsubscribe(id string) {
	w.mu.Lock()
	delete(w.subscribers, id)
	w.mu.Unlock()
}

// Post delivers a message to the worker. Only StartTokenRefresh is accepted
// from clients; everything else is dropped.
func (w *RefreshWorker) Post(msg Message) {
	if msg.Type != StartTokenRefresh || msg.Auth == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.auth = msg.Auth
	w.backoff = 0
	w.scheduleLocked(w.refreshDelayLocked())
}

// Stop cancels the chain. Subsequent messages are dropped.
func (w *RefreshWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	w.chainID = ""
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *RefreshWorker) refreshDelayLocked() time.Duration {
	delay := w.auth.ExpiresAt.Sub(w.now()) - w.lead
	if delay < 0 {
		delay = 0
	}
	return delay
}

// scheduleLocked arms the refresh timer, replacing any pending one, so that at
// most one chain exists regardless of how many clients ask.
// Caller holds w.mu.
func (w *RefreshWorker) scheduleLocked(delay time.Duration) {
	if w.timer != nil {
		w.timer.Stop()
	}

	chainID := shared.GenerateID()
	w.chainID = chainID
	w.timer = time.AfterFunc(delay, func() { w.refreshStep(chainID) })
	w.logger.Debug("refresh scheduled", "in", delay, "chain", chainID)
}

func (w *RefreshWorker) refreshStep(chainID string) {
	w.mu.Lock()
	if w.stopped || w.chainID != chainID || w.auth == nil {
		w.mu.Unlock()
		return
	}
	stale := *w.auth
	w.mu.Unlock()

	auth, err := api.RefreshToken(context.Background(), w.hc, w.baseURL, stale.RefreshToken)

	w.mu.Lock()
	if w.stopped || w.chainID != chainID {
		w.mu.Unlock()
		return
	}

	if err != nil {
		if w.backoff == 0 {
			w.backoff = retryBackoffInitial
		} else if w.backoff *= 2; w.backoff > retryBackoffMax {
			w.backoff = retryBackoffMax
		}
		w.logger.Warn("refresh failed, retrying", "err", err, "backoff", w.backoff)
		w.scheduleLocked(w.backoff)
		w.mu.Unlock()
		return
	}

	w.auth = auth
	w.backoff = 0
	w.scheduleLocked(w.refreshDelayLocked())

	fns := make([]func(Message), 0, len(w.subscribers))
	for _, fn := range w.subscribers {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	msg := Message{ID: shared.GenerateID(), Type: TokenRefreshed, Auth: auth}
	for _, fn := range fns {
		fn(msg)
	}
	w.logger.Debug("credentials broadcast", "subscribers", len(fns))
}
