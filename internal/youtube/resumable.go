package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"

	"github.com/calegria/mp3tube/internal/uploader"
)

const uploadEndpoint = "https://www.googleapis.com/upload/youtube/v3/videos"

// statusResumeIncomplete is the ack status for a chunk the session accepted
// without finishing the upload.
const statusResumeIncomplete = 308

// Resumable speaks YouTube's resumable upload protocol as an
// uploader.Transport. One value drives one upload session.
type Resumable struct {
	httpClient *http.Client
	endpoint   string
	verbose    bool

	sessionURI string
	totalBytes int64
}

// NewResumable builds a transport over an authenticated HTTP client. The
// endpoint is overridable for tests; empty means the production API.
func NewResumable(httpClient *http.Client, endpoint string, verbose bool) *Resumable {
	if endpoint == "" {
		endpoint = uploadEndpoint
	}
	return &Resumable{
		httpClient: httpClient,
		endpoint:   endpoint,
		verbose:    verbose,
	}
}

// ResumableTransport returns an upload transport bound to this client's
// credentials.
func (c *Client) ResumableTransport() *Resumable {
	return NewResumable(c.httpClient, "", c.verbose)
}

// Begin opens the resumable session: it posts the video metadata and records
// the session URI the API hands back in the Location header.
func (r *Resumable) Begin(ctx context.Context, meta uploader.Metadata, totalBytes int64) error {
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           string(meta.Privacy),
			SelfDeclaredMadeForKids: meta.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	body, err := json.Marshal(video)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.endpoint+"?uploadType=resumable&part=snippet,status", bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/mp4")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(totalBytes, 10))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(ErrRemoteAPI, err.Error())
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapAPIError(err, "failed to start resumable upload")
	}

	r.sessionURI = resp.Header.Get("Location")
	if r.sessionURI == "" {
		return errors.Wrap(ErrRemoteAPI, "resumable session response carried no Location header")
	}
	r.totalBytes = totalBytes

	if r.verbose {
		log.Printf("Opened resumable session for %d bytes\n", totalBytes)
	}
	return nil
}

// Send transmits one chunk. A 308 response acknowledges the chunk and
// reports the committed byte count in its Range header; 200/201 carries the
// final video resource.
func (r *Resumable) Send(ctx context.Context, chunk []byte, offset int64, last bool) (*uploader.Ack, error) {
	if r.sessionURI == "" {
		return nil, errors.Wrap(ErrRemoteAPI, "Send called before Begin")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.sessionURI, bytes.NewReader(chunk))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d",
		offset, offset+int64(len(chunk))-1, r.totalBytes))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrRemoteAPI, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == statusResumeIncomplete:
		return &uploader.Ack{Committed: parseRangeHeader(resp.Header.Get("Range"))}, nil

	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		video := &yt.Video{}
		if err := json.NewDecoder(resp.Body).Decode(video); err != nil {
			return nil, errors.Wrap(ErrRemoteAPI, "failed to decode upload response")
		}
		ack := &uploader.Ack{
			Committed: r.totalBytes,
			Done:      true,
			RemoteID:  video.Id,
			WatchURL:  WatchURL(video.Id),
		}
		if video.Status != nil {
			ack.Privacy = video.Status.PrivacyStatus
		}
		return ack, nil

	default:
		err := googleapi.CheckResponse(resp)
		if err == nil {
			err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, wrapAPIError(err, "chunk upload failed")
	}
}

// parseRangeHeader extracts the committed byte count from a "bytes=0-N"
// header; -1 means the server did not report one.
func parseRangeHeader(h string) int64 {
	if h == "" {
		return -1
	}
	h = strings.TrimPrefix(h, "bytes=")
	parts := strings.SplitN(h, "-", 2)
	if len(parts) != 2 {
		return -1
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return -1
	}
	return end + 1
}
