// Package youtube is the video-hosting collaborator: OAuth credentials, the
// Data API v3 service, and a resumable upload transport for the uploader.
package youtube

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/calegria/mp3tube/config"
)

var (
	// ErrRemoteAPI wraps non-retryable YouTube API failures (auth, quota,
	// malformed requests). They are surfaced, not retried.
	ErrRemoteAPI = errors.New("YouTube API failure")
	// ErrUnknownCategory is returned for a category that is neither a known
	// name nor a numeric ID.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoChannel is returned when the authenticated account has no channel.
	ErrNoChannel = errors.New("no YouTube channel found for this account")
)

// categories maps friendly names to YouTube category IDs.
var categories = map[string]string{
	"film":          "1",
	"autos":         "2",
	"music":         "10",
	"pets":          "15",
	"sports":        "17",
	"travel":        "19",
	"gaming":        "20",
	"people":        "22",
	"comedy":        "23",
	"entertainment": "24",
	"news":          "25",
	"howto":         "26",
	"education":     "27",
	"science":       "28",
	"nonprofits":    "29",
}

// ResolveCategory maps a category name (e.g. "music") to its numeric ID.
// Numeric input passes through unchanged.
func ResolveCategory(category string) (string, error) {
	if id, ok := categories[category]; ok {
		return id, nil
	}
	if _, err := strconv.Atoi(category); err == nil {
		return category, nil
	}
	return "", errors.Wrapf(ErrUnknownCategory, "%q", category)
}

// WatchURL returns the public watch page for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Client wraps an authenticated YouTube Data API service.
type Client struct {
	httpClient *http.Client
	service    *yt.Service
	verbose    bool
}

// NewClient builds a client from cached credentials, refreshing the token if
// needed. It fails with ErrNotAuthenticated when no token has been cached.
func NewClient(ctx context.Context, creds config.Credentials, verbose bool) (*Client, error) {
	ts, err := tokenSource(ctx, creds)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, ts)
	service, err := yt.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create YouTube service")
	}

	return &Client{
		httpClient: httpClient,
		service:    service,
		verbose:    verbose,
	}, nil
}

// SetThumbnail uploads a still image as the thumbnail of an existing video.
// Callers treat a failure here as a warning; it never invalidates the upload.
func (c *Client) SetThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	f, err := os.Open(thumbnailPath)
	if err != nil {
		return errors.Wrapf(err, "thumbnail file not found: %s", thumbnailPath)
	}
	defer f.Close()

	_, err = c.service.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, "failed to set thumbnail")
	}
	return nil
}

// ChannelInfo returns the title and ID of the authenticated user's channel.
// Used by the auth command to verify credentials work.
func (c *Client) ChannelInfo(ctx context.Context) (title, id string, err error) {
	resp, err := c.service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", "", wrapAPIError(err, "failed to list channels")
	}
	if len(resp.Items) == 0 {
		return "", "", ErrNoChannel
	}
	return resp.Items[0].Snippet.Title, resp.Items[0].Id, nil
}

func wrapAPIError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return errors.Wrapf(ErrRemoteAPI, "%s: %d %s", msg, apiErr.Code, apiErr.Message)
	}
	return errors.Wrapf(ErrRemoteAPI, "%s: %v", msg, err)
}
