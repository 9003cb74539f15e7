// Package store holds the in-memory catalog cache backing the UI: channels
// and playlist items keyed by id, persisted through an injected storage.Db so
// a restart resumes where the last run stopped.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/storage"
)

const (
	channelsKey      = "store.channels"
	playlistItemsKey = "store.playlistItems"

	defaultStaleAfter = 5 * time.Minute
)

// PageRequest describes the next page worth fetching from the API.
type PageRequest struct {
	// Token is the page token to request.
	Token string
	// Refresh is set when the cached copy of the page behind Token has gone
	// stale and should be re-fetched in place rather than advanced past.
	Refresh bool
}

// Opts configures a [Store].
type Opts struct {
	Db     storage.Db
	Logger *log.Logger

	// StaleAfter is the cache age beyond which a page is re-fetched instead
	// of advanced. Defaults to five minutes.
	StaleAfter time.Duration

	// Now is a clock override for tests.
	Now func() time.Time
}

// Store is the catalog cache. Writes upsert by id (last write wins) and
// persist through the injected Db; reads are position-ordered snapshots.
type Store struct {
	mu sync.RWMutex

	db         storage.Db
	logger     *log.Logger
	staleAfter time.Duration
	now        func() time.Time

	channels      map[string]models.Channel
	playlistItems map[string]models.PlaylistItem

	loading bool
	loaded  chan struct{}
}

// New constructs a store and begins hydrating it from the injected Db.
// Hydration is asynchronous; [Store.IsLoading] reports true until it finishes
// and [Store.Loaded] can be waited on.
func New(opts Opts) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		db:            opts.Db,
		logger:        shared.WithLogger(opts.Logger, "component", "store"),
		staleAfter:    opts.StaleAfter,
		now:           opts.Now,
		channels:      make(map[string]models.Channel),
		playlistItems: make(map[string]models.PlaylistItem),
		loading:       true,
		loaded:        make(chan struct{}),
	}

	go s.hydrate(context.Background())
	return s
}

// IsLoading reports whether hydration from the backing store is still running.
// A UI should show cached-data screens only after this turns false.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded is closed once hydration has finished.
func (s *Store) Loaded() <-chan struct{} {
	return s.loaded
}

func (s *Store) hydrate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		close(s.loaded)
	}()

	if s.db == nil {
		return
	}

	var channels map[string]models.Channel
	if _, err := storage.Load(ctx, s.db, channelsKey, &channels); err != nil {
		s.logger.Warn("failed to load cached channels", "err", err)
	}

	var items map[string]models.PlaylistItem
	if _, err := storage.Load(ctx, s.db, playlistItemsKey, &items); err != nil {
		s.logger.Warn("failed to load cached playlist items", "err", err)
	}

	s.mu.Lock()
	for id, c := range channels {
		s.channels[id] = c
	}
	for id, v := range items {
		s.playlistItems[id] = v
	}
	s.mu.Unlock()

	s.logger.Debug("cache hydrated", "channels", len(channels), "playlistItems", len(items))
}

// AddChannels upserts a batch of channels by id and persists the result.
// Re-adding an id overwrites the previous record wholesale.
func (s *Store) AddChannels(ctx context.Context, channels []models.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, c := range channels {
		s.channels[c.ID] = c
	}
	snapshot := make(map[string]models.Channel, len(s.channels))
	for id, c := range s.channels {
		snapshot[id] = c
	}
	s.mu.Unlock()

	return s.persist(ctx, channelsKey, snapshot)
}

// AddPlaylistItems upserts a batch of playlist items by id and persists the
// result.
func (s *Store) AddPlaylistItems(ctx context.Context, items []models.PlaylistItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, v := range items {
		s.playlistItems[v.ID] = v
	}
	snapshot := make(map[string]models.PlaylistItem, len(s.playlistItems))
	for id, v := range s.playlistItems {
		snapshot[id] = v
	}
	s.mu.Unlock()

	return s.persist(ctx, playlistItemsKey, snapshot)
}

func (s *Store) persist(ctx context.Context, key string, obj any) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Set(ctx, key, obj); err != nil {
		s.logger.Warn("failed to persist cache", "key", key, "err", err)
		return err
	}
	return nil
}

// Channels returns up to limit channels starting at offset skip, ordered by
// position then id. limit <= 0 means no limit.
func (s *Store) Channels(limit, skip int) []models.Channel {
	s.mu.RLock()
	all := make([]models.Channel, 0, len(s.channels))
	for _, c := range s.channels {
		all = append(all, c)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Position != all[j].Position {
			return all[i].Position < all[j].Position
		}
		return all[i].ID < all[j].ID
	})

	return window(all, limit, skip)
}

// PlaylistItems returns up to limit of channelID's playlist items starting at
// offset skip, ordered by position then id. limit <= 0 means no limit.
func (s *Store) PlaylistItems(channelID string, limit, skip int) []models.PlaylistItem {
	s.mu.RLock()
	all := make([]models.PlaylistItem, 0)
	for _, v := range s.playlistItems {
		if v.ChannelID == channelID {
			all = append(all, v)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Position != all[j].Position {
			return all[i].Position < all[j].Position
		}
		return all[i].ID < all[j].ID
	})

	return window(all, limit, skip)
}

// Channel returns the cached channel for id.
func (s *Store) Channel(id string) (models.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[id]
	return c, ok
}

// Video returns the cached playlist item for id.
func (s *Store) Video(id string) (models.PlaylistItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.playlistItems[id]
	return v, ok
}

// NextChannelPage derives the continuation for the channel catalog from the
// most recently fetched cached channel. A fresh cache advances to its
// nextPageToken; a stale one re-requests its own page; an empty cache (or one
// whose freshest page has no next) reports ok=false and the first page should
// be fetched.
func (s *Store) NextChannelPage() (PageRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Channel
	for id := range s.channels {
		c := s.channels[id]
		if latest == nil || c.Timestamp.After(latest.Timestamp) {
			latest = &c
		}
	}
	if latest == nil {
		return PageRequest{}, false
	}
	return s.continuation(latest.Timestamp, latest.PageToken, latest.NextPageToken)
}

// NextVideoPage derives the continuation for channelID's playlist items, with
// the same freshness rules as [Store.NextChannelPage].
func (s *Store) NextVideoPage(channelID string) (PageRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.PlaylistItem
	for id := range s.playlistItems {
		v := s.playlistItems[id]
		if v.ChannelID != channelID {
			continue
		}
		if latest == nil || v.Timestamp.After(latest.Timestamp) {
			latest = &v
		}
	}
	if latest == nil {
		return PageRequest{}, false
	}
	return s.continuation(latest.Timestamp, latest.PageToken, latest.NextPageToken)
}

func (s *Store) continuation(ts time.Time, pageToken, nextPageToken string) (PageRequest, bool) {
	if s.now().Sub(ts) > s.staleAfter {
		return PageRequest{Token: pageToken, Refresh: true}, true
	}
	if nextPageToken != "" {
		return PageRequest{Token: nextPageToken}, true
	}
	return PageRequest{}, false
}

// ClearState empties the cache and the backing store.
func (s *Store) ClearState(ctx context.Context) error {
	s.mu.Lock()
	s.channels = make(map[string]models.Channel)
	s.playlistItems = make(map[string]models.PlaylistItem)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Clear(ctx)
}

// Destroy persists the final snapshot. Call on logical shutdown.
func (s *Store) Destroy(ctx context.Context) error {
	s.mu.RLock()
	channels := make(map[string]models.Channel, len(s.channels))
	for id, c := range s.channels {
		channels[id] = c
	}
	items := make(map[string]models.PlaylistItem, len(s.playlistItems))
	for id, v := range s.playlistItems {
		items[id] = v
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Set(ctx, channelsKey, channels); err != nil {
		return err
	}
	return s.db.Set(ctx, playlistItemsKey, items)
}

func window[T any](all []T, limit, skip int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return all[skip:end]
}
