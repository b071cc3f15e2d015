// Package config defines the option structs and defaults shared by the
// mp3tube commands.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

// ConvertOptions defines options for converting an MP3 into a still-image video
type ConvertOptions struct {
	InputPath  string
	OutputPath string
	CoverPath  string // empty means extract from the MP3's ID3 art
	Resolution string // e.g. "1920x1080"
	Background string // "blur", "black", or a hex color
	Overwrite  bool
	Verbose    bool

	// WideAspectThreshold is the aspect ratio at or above which a cover is
	// treated as already landscape. Zero means DefaultWideAspectThreshold.
	WideAspectThreshold float64
}

// UploadOptions defines options for uploading a finished video
type UploadOptions struct {
	VideoPath     string
	Title         string
	Description   string
	Tags          []string
	Category      string
	Privacy       string
	ThumbnailPath string
	MadeForKids   bool
	ChunkSize     int64
	Verbose       bool
}

// PublishOptions defines options for the combined convert+upload flow
type PublishOptions struct {
	AudioPath    string
	MetadataPath string

	// Explicit overrides for fields the metadata document may also carry.
	Title         string
	Description   string
	Tags          []string
	CoverPath     string
	Category      string
	Privacy       string
	ThumbnailPath string

	Background string
	Resolution string
	ChunkSize  int64
	KeepVideo  bool
	VideoOnly  bool
	Verbose    bool
}

// Credentials locates the OAuth client secrets and the cached token. Both
// paths are handed explicitly to the YouTube client so nothing reads ambient
// process state.
type Credentials struct {
	ClientSecretsFile string
	TokenFile         string
}

const (
	// Output resolution (1920x1080)
	DefaultWidth  = 1920
	DefaultHeight = 1080

	// Aspect ratio at or above which a cover counts as landscape
	// (tolerance band around 16:9 = 1.777)
	DefaultWideAspectThreshold = 1.7

	// Encoder settings for the still-image video
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	AudioBitrate = "192k"
	PixelFormat  = "yuv420p"

	// Box blur radius for the blurred-background mode
	BlurRadius = 30

	// Resumable upload chunk size (1MB)
	DefaultChunkSize = 1024 * 1024

	// Temporary file prefix for extracted cover art
	TempCoverPrefix = "mp3tube_cover_"

	// File names inside the credentials directory
	ClientSecretsFileName = "client_secrets.json"
	TokenFileName         = "token.json"
)

// Defaults holds environment-overridable defaults for flag values.
type Defaults struct {
	CredentialsDir string `env:"MP3TUBE_CREDENTIALS_DIR"`
	Resolution     string `env:"MP3TUBE_RESOLUTION, default=1920x1080"`
	Background     string `env:"MP3TUBE_BACKGROUND, default=blur"`
	ChunkSize      int64  `env:"MP3TUBE_CHUNK_SIZE, default=1048576"`
}

// LoadDefaults reads defaults from the environment. The credentials directory
// falls back to ~/.config/mp3tube when unset.
func LoadDefaults(ctx context.Context) (*Defaults, error) {
	d := &Defaults{}
	if err := envconfig.Process(ctx, d); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults from environment")
	}

	if d.CredentialsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to locate home directory")
		}
		d.CredentialsDir = filepath.Join(home, ".config", "mp3tube")
	}

	return d, nil
}

// Credentials returns the credential file paths under the defaults' directory.
func (d *Defaults) Credentials() Credentials {
	return Credentials{
		ClientSecretsFile: filepath.Join(d.CredentialsDir, ClientSecretsFileName),
		TokenFile:         filepath.Join(d.CredentialsDir, TokenFileName),
	}
}
