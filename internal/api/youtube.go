package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/youhedge/hedgetv/internal/models"
	"github.com/youhedge/hedgetv/internal/shared"
	"golang.org/x/oauth2"
)

// YouTubeService performs the authenticated data calls against the YouHedge
// proxy: subscriptions, channel details and playlist items.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a data service whose requests are authorized by
// tokens pulled from src.
func NewYouTubeService(baseURL string, src oauth2.TokenSource, base *http.Client) *YouTubeService {
	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: NewAuthorizedClient(src, base),
	}
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrNetwork, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Subscriptions retrieves one page of the logged-in user's subscriptions.
//
// GET {base}/youtube/subscriptions[?pageToken=...]
func (y *YouTubeService) Subscriptions(ctx context.Context, pageToken string) (*SubscriptionResponse, error) {
	endpoint := "/youtube/subscriptions"
	if pageToken != "" {
		endpoint += "?pageToken=" + pageToken
	}

	var resp SubscriptionResponse
	if err := y.doRequest(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChannelDetails retrieves the snippet and content details of one channel.
//
// GET {base}/youtube/channels/{channelId}
func (y *YouTubeService) ChannelDetails(ctx context.Context, channelID string) (*ChannelDetails, error) {
	var resp ChannelDetails
	if err := y.doRequest(ctx, "/youtube/channels/"+channelID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaylistItemList retrieves one page of a playlist's items.
//
// GET {base}/youtube/playlist-items/{playlistId}[?pageToken=...]
func (y *YouTubeService) PlaylistItemList(ctx context.Context, playlistID, pageToken string) (*PlaylistItemListResponse, error) {
	endpoint := "/youtube/playlist-items/" + playlistID
	if pageToken != "" {
		endpoint += "?pageToken=" + pageToken
	}

	var resp PlaylistItemListResponse
	if err := y.doRequest(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetChannels fetches the subscriptions page for pageToken and resolves each
// subscription into a full [models.Channel]. Position is the index within the
// batch; the page token that produced the batch is the response's
// prevPageToken, matching how continuation is later derived.
func (y *YouTubeService) GetChannels(ctx context.Context, pageToken string) ([]models.Channel, error) {
	subs, err := y.Subscriptions(ctx, pageToken)
	if err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(subs.Items))
	for i, item := range subs.Items {
		details, err := y.ChannelDetails(ctx, item.Snippet.ResourceID.ChannelID)
		if err != nil {
			return nil, err
		}

		channels = append(channels, models.Channel{
			ID:            details.ID,
			Position:      i,
			Title:         details.Snippet.Title,
			Description:   details.Snippet.Description,
			ImageURL:      bestThumbnail(details.Snippet.Thumbnails),
			PlaylistID:    details.ContentDetails.RelatedPlaylists.Uploads,
			PageToken:     subs.PrevPageToken,
			NextPageToken: subs.NextPageToken,
			Timestamp:     now(),
		})
	}

	return channels, nil
}

// GetPlaylistItems fetches one page of the uploads playlist of channel and
// maps each entry to a [models.PlaylistItem] owned by that channel.
func (y *YouTubeService) GetPlaylistItems(ctx context.Context, channel models.Channel, pageToken string) ([]models.PlaylistItem, error) {
	page, err := y.PlaylistItemList(ctx, channel.PlaylistID, pageToken)
	if err != nil {
		return nil, err
	}

	items := make([]models.PlaylistItem, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, models.PlaylistItem{
			ID:            item.ID,
			ChannelID:     channel.ID,
			Position:      item.Snippet.Position,
			Title:         item.Snippet.Title,
			Description:   item.Snippet.Description,
			ImageURL:      bestThumbnail(item.Snippet.Thumbnails),
			VideoID:       item.Snippet.ResourceID.VideoID,
			PageToken:     page.PrevPageToken,
			NextPageToken: page.NextPageToken,
			Timestamp:     now(),
		})
	}

	return items, nil
}
