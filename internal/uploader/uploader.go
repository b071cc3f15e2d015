// Package uploader drives a chunked, resumable video upload to completion.
// Chunks are strictly ordered; each dispatch is gated on the prior chunk's
// acknowledgment. The wire protocol itself belongs to the Transport
// implementation, not this package.
package uploader

import (
	"context"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/calegria/mp3tube/config"
	"github.com/calegria/mp3tube/pkg/types"
)

var (
	// ErrValidation is returned when upload metadata fails validation. It is
	// raised before any network traffic.
	ErrValidation = errors.New("invalid upload metadata")
	// ErrIncomplete is returned when the transport acknowledges the final
	// chunk without reporting completion.
	ErrIncomplete = errors.New("upload ended without completion")
)

var validate = validator.New()

// Metadata describes the video being uploaded.
type Metadata struct {
	Title       string        `validate:"required,max=100"`
	Description string        `validate:"max=5000"`
	Tags        []string      `validate:"-"`
	CategoryID  string        `validate:"required"`
	Privacy     types.Privacy `validate:"required,oneof=public private unlisted"`
	MadeForKids bool
}

// Validate checks field constraints (title length, description length,
// privacy membership) and fails fast with ErrValidation.
func (m Metadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Wrap(ErrValidation, err.Error())
	}
	return nil
}

// State is the upload session lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in-progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Session is one upload of one local file. It is owned by the call that
// created it and must not be shared across concurrent uploads.
type Session struct {
	FilePath string
	Metadata Metadata

	state      State
	bytesSent  int64
	totalBytes int64
	failure    error
}

// NewSession creates a pending upload session for a local video file.
func NewSession(filePath string, meta Metadata) *Session {
	return &Session{
		FilePath: filePath,
		Metadata: meta,
		state:    StatePending,
	}
}

func (s *Session) State() State      { return s.state }
func (s *Session) BytesSent() int64  { return s.bytesSent }
func (s *Session) TotalBytes() int64 { return s.totalBytes }

// Failure returns the error that moved the session to StateFailed, if any.
func (s *Session) Failure() error { return s.failure }

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.failure = err
	return err
}

// Ack is a transport's acknowledgment of one chunk. Committed is the total
// byte count the remote has durably accepted; a negative value means the
// transport does not report it and the driver falls back to its own offset
// arithmetic.
type Ack struct {
	Committed int64
	Done      bool
	RemoteID  string
	WatchURL  string
	Privacy   string
}

// Transport is the remote collaborator the driver speaks to. Implementations
// surface non-retryable remote errors as-is; retry policy, if any, is theirs.
type Transport interface {
	// Begin opens the remote upload session for a file of totalBytes.
	Begin(ctx context.Context, meta Metadata, totalBytes int64) error
	// Send transmits one chunk starting at offset. last marks the final chunk.
	Send(ctx context.Context, chunk []byte, offset int64, last bool) (*Ack, error)
}

// ProgressSink receives fractional progress as an integer percent. It is
// invoked inline on the calling goroutine.
type ProgressSink func(percent int)

// Result is a completed upload.
type Result struct {
	RemoteID string
	WatchURL string
	Privacy  types.Privacy
	Title    string
}

// Driver uploads sessions over a Transport in fixed-size chunks.
type Driver struct {
	transport Transport
	chunkSize int64
}

// NewDriver creates a driver. A non-positive chunkSize selects the default.
func NewDriver(transport Transport, chunkSize int64) *Driver {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	return &Driver{transport: transport, chunkSize: chunkSize}
}

// Upload validates the session's metadata, then drives the chunk loop to
// completion. Progress reported to sink is non-decreasing and bounded in
// [0,100]. Any transport error fails the session and is returned unretried.
func (d *Driver) Upload(ctx context.Context, session *Session, sink ProgressSink) (*Result, error) {
	if err := session.Metadata.Validate(); err != nil {
		return nil, session.fail(err)
	}

	file, err := os.Open(session.FilePath)
	if err != nil {
		return nil, session.fail(errors.Wrapf(err, "failed to open video file %s", session.FilePath))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, session.fail(errors.WithStack(err))
	}
	if info.Size() == 0 {
		return nil, session.fail(errors.Wrapf(ErrValidation, "empty video file %s", session.FilePath))
	}
	session.totalBytes = info.Size()

	if err := d.transport.Begin(ctx, session.Metadata, session.totalBytes); err != nil {
		return nil, session.fail(err)
	}

	var (
		offset      int64
		lastPercent int
		final       *Ack
	)

	buf := make([]byte, d.chunkSize)
	for offset < session.totalBytes {
		n, err := io.ReadFull(file, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return nil, session.fail(errors.WithStack(err))
		}
		if n == 0 {
			break
		}

		last := offset+int64(n) >= session.totalBytes
		session.state = StateInProgress

		ack, err := d.transport.Send(ctx, buf[:n], offset, last)
		if err != nil {
			return nil, session.fail(err)
		}

		offset += int64(n)

		committed := ack.Committed
		if committed < 0 {
			committed = offset
		}
		// bytesSent only ever moves forward, whatever the transport claims.
		if committed > session.bytesSent {
			session.bytesSent = committed
		}

		percent := roundPercent(session.bytesSent, session.totalBytes)
		if percent > lastPercent {
			lastPercent = percent
		}
		if sink != nil {
			sink(lastPercent)
		}

		if ack.Done {
			final = ack
			break
		}
	}

	if final == nil || final.RemoteID == "" {
		return nil, session.fail(errors.Wrap(ErrIncomplete, session.FilePath))
	}

	session.state = StateCompleted
	privacy := session.Metadata.Privacy
	if final.Privacy != "" {
		privacy = types.Privacy(final.Privacy)
	}
	return &Result{
		RemoteID: final.RemoteID,
		WatchURL: final.WatchURL,
		Privacy:  privacy,
		Title:    session.Metadata.Title,
	}, nil
}

func roundPercent(sent, total int64) int {
	percent := int(math.Round(100 * float64(sent) / float64(total)))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
