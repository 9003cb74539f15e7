package api

// Wire shapes of the YouHedge API responses.

type loginDetailsResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type loginStatusResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	TokenType   string `json:"token_type"`
}

type pageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type thumbnails struct {
	Default thumbnail `json:"default"`
	Medium  thumbnail `json:"medium"`
	High    thumbnail `json:"high"`
}

// SubscriptionResponse is one page of the authenticated user's subscriptions.
type SubscriptionResponse struct {
	NextPageToken string                `json:"nextPageToken,omitempty"`
	PrevPageToken string                `json:"prevPageToken,omitempty"`
	PageInfo      pageInfo              `json:"pageInfo"`
	Items         []SubscriptionDetails `json:"items"`
}

// SubscriptionDetails is a single subscription entry.
type SubscriptionDetails struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ResourceID  struct {
			ChannelID string `json:"channelId"`
		} `json:"resourceId"`
		Thumbnails thumbnails `json:"thumbnails"`
	} `json:"snippet"`
}

// ChannelDetails is the snippet/content details of one channel.
type ChannelDetails struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Thumbnails  thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

// PlaylistItemListResponse is one page of a playlist's items.
type PlaylistItemListResponse struct {
	NextPageToken string                 `json:"nextPageToken,omitempty"`
	PrevPageToken string                 `json:"prevPageToken,omitempty"`
	PageInfo      pageInfo               `json:"pageInfo"`
	Items         []PlaylistItemResponse `json:"items"`
}

// PlaylistItemResponse is a single playlist entry.
type PlaylistItemResponse struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Thumbnails  thumbnails `json:"thumbnails"`
		Position    int        `json:"position"`
		ResourceID  struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// bestThumbnail picks the richest available thumbnail, high first.
func bestThumbnail(t thumbnails) string {
	switch {
	case t.High.URL != "":
		return t.High.URL
	case t.Medium.URL != "":
		return t.Medium.URL
	default:
		return t.Default.URL
	}
}
