package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CacheShow summarizes cache contents and where the next sync would resume.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	<-r.cache.Loaded()

	channels := r.cache.Channels(0, 0)

	if cmd.Bool("json") {
		summary := map[string]any{
			"channels": len(channels),
		}
		if page, ok := r.cache.NextChannelPage(); ok {
			summary["nextPageToken"] = page.Token
			summary["refresh"] = page.Refresh
		}
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader("Cache")
	r.writePlain("Channels: %d\n", len(channels))

	if page, ok := r.cache.NextChannelPage(); ok {
		if page.Refresh {
			r.writePlain("Next sync: re-fetch stale page %q\n", page.Token)
		} else {
			r.writePlain("Next sync: page %q\n", page.Token)
		}
	} else {
		r.writePlain("Next sync: first page\n")
	}

	for _, c := range channels {
		videos := r.cache.PlaylistItems(c.ID, 0, 0)
		r.writePlain("  %s — %d cached videos\n", c.Title, len(videos))
	}
	return nil
}

// CacheClear empties the cache and its backing store.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	<-r.cache.Loaded()

	if err := r.cache.ClearState(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("cache cleared")
	return r.writePlain("✓ Cache cleared\n")
}
