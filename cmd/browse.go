package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
)

// ChannelsList prints the cached subscription channels in position order.
func (r *Runner) ChannelsList(ctx context.Context, cmd *cli.Command) error {
	<-r.cache.Loaded()

	channels := r.cache.Channels(int(cmd.Int("limit")), int(cmd.Int("skip")))

	if cmd.Bool("json") {
		return r.writeJSON(channels, cmd.Bool("pretty"))
	}

	if len(channels) == 0 {
		r.writePlain("Cache is empty. Run 'hedgetv channels sync' to fetch subscriptions.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Subscriptions (%d)", len(channels)))
	for _, c := range channels {
		r.writePlain("%3d  %s\n", c.Position, c.Title)
		r.writePlain("     id: %s  uploads: %s\n", c.ID, c.PlaylistID)
	}
	return nil
}

// ChannelsSync fetches the continuation page of subscriptions into the cache.
// A stale cache re-fetches its newest page in place; a fresh one advances.
func (r *Runner) ChannelsSync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	<-r.cache.Loaded()

	var token string
	if page, ok := r.cache.NextChannelPage(); ok {
		token = page.Token
		if page.Refresh {
			r.logger.Info("cached page is stale, re-fetching", "pageToken", token)
		}
	}

	channels, err := r.service.GetChannels(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch channels: %w", err)
	}

	if err := r.cache.AddChannels(ctx, channels); err != nil {
		return fmt.Errorf("failed to cache channels: %w", err)
	}

	r.logger.Info("channels synced", "fetched", len(channels))
	return r.writePlain("✓ Synced %d channels\n", len(channels))
}

// VideosList prints the cached uploads of one channel in position order.
func (r *Runner) VideosList(ctx context.Context, cmd *cli.Command) error {
	<-r.cache.Loaded()

	channelID := cmd.String("channel")
	videos := r.cache.PlaylistItems(channelID, int(cmd.Int("limit")), int(cmd.Int("skip")))

	if cmd.Bool("json") {
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}

	if len(videos) == 0 {
		r.writePlain("No cached videos for %s. Run 'hedgetv videos sync --channel %s' first.\n", channelID, channelID)
		return nil
	}

	title := channelID
	if channel, ok := r.cache.Channel(channelID); ok {
		title = channel.Title
	}

	r.writePlainHeader(fmt.Sprintf("Uploads of %s (%d)", title, len(videos)))
	for _, v := range videos {
		r.writePlain("%3d  %s\n", v.Position, v.Title)
		r.writePlain("     id: %s  video: %s\n", v.ID, v.VideoID)
	}
	return nil
}

// VideosSync fetches the continuation page of a channel's uploads into the cache.
func (r *Runner) VideosSync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	<-r.cache.Loaded()

	channelID := cmd.String("channel")
	channel, ok := r.cache.Channel(channelID)
	if !ok {
		return fmt.Errorf("%w: %s is not in the cache, sync channels first", shared.ErrChannelNotFound, channelID)
	}

	var token string
	if page, ok := r.cache.NextVideoPage(channelID); ok {
		token = page.Token
		if page.Refresh {
			r.logger.Info("cached page is stale, re-fetching", "pageToken", token)
		}
	}

	videos, err := r.service.GetPlaylistItems(ctx, channel, token)
	if err != nil {
		return fmt.Errorf("failed to fetch videos: %w", err)
	}

	if err := r.cache.AddPlaylistItems(ctx, videos); err != nil {
		return fmt.Errorf("failed to cache videos: %w", err)
	}

	r.logger.Info("videos synced", "channel", channelID, "fetched", len(videos))
	return r.writePlain("✓ Synced %d videos for %s\n", len(videos), channel.Title)
}

// Play opens a video in the system browser. The argument is a cached playlist
// item id, falling back to a raw YouTube video id when nothing matches.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: video id is required", shared.ErrMissingArgument)
	}

	<-r.cache.Loaded()

	var url string
	if video, ok := r.cache.Video(id); ok {
		url = video.WatchURL()
	} else {
		url = (models.PlaylistItem{VideoID: id}).WatchURL()
	}

	r.logger.Info("opening video", "url", url)
	if err := shared.OpenBrowser(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return r.writePlain("✓ Opened %s\n", url)
}
