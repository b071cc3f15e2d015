// Package processor orchestrates the convert and publish flows: composing
// the cover frame, driving the encoder, and handing the result to the
// upload driver.
package processor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/calegria/mp3tube/config"
	"github.com/calegria/mp3tube/internal/compositor"
	"github.com/calegria/mp3tube/internal/ffmpeg"
	"github.com/calegria/mp3tube/internal/metadata"
	"github.com/calegria/mp3tube/internal/uploader"
	"github.com/calegria/mp3tube/internal/youtube"
	"github.com/calegria/mp3tube/pkg/types"
)

var (
	// ErrMissingFFmpeg is returned before any file is touched when the
	// encoder binary is unavailable.
	ErrMissingFFmpeg = errors.New(
		"ffmpeg is not installed (macOS: brew install ffmpeg, Debian/Ubuntu: apt install ffmpeg)")
	// ErrOutputExists is returned when the output file exists and
	// --overwrite was not given.
	ErrOutputExists = errors.New("output file already exists (use --overwrite to replace it)")
	// ErrNoAudio is returned when neither the argument nor the metadata
	// document names an audio file.
	ErrNoAudio = errors.New("no MP3 file specified (pass a file argument or set 'audio' in metadata)")
	// ErrNoTitle is returned when publishing without a title.
	ErrNoTitle = errors.New("no title specified (use --title or set 'title' in metadata)")
)

// Converter turns an MP3 plus a cover image into a still-image MP4.
type Converter struct {
	opts   *config.ConvertOptions
	ffmpeg *ffmpeg.Processor
}

// NewConverter creates a new converter
func NewConverter(opts *config.ConvertOptions) *Converter {
	return &Converter{
		opts:   opts,
		ffmpeg: ffmpeg.NewProcessor(opts.Verbose),
	}
}

// Process runs the conversion and returns the output video path. Extracted
// cover art is removed on every exit path.
func (c *Converter) Process() (string, error) {
	if !ffmpeg.CheckInstalled() {
		return "", errors.WithStack(ErrMissingFFmpeg)
	}

	if _, err := os.Stat(c.opts.InputPath); err != nil {
		return "", errors.Wrapf(err, "input file not found: %s", c.opts.InputPath)
	}

	outputPath := c.opts.OutputPath
	if outputPath == "" {
		outputPath = strings.TrimSuffix(c.opts.InputPath, filepath.Ext(c.opts.InputPath)) + ".mp4"
	}
	if _, err := os.Stat(outputPath); err == nil && !c.opts.Overwrite {
		return "", errors.Wrap(ErrOutputExists, outputPath)
	}

	resolution := c.opts.Resolution
	if resolution == "" {
		resolution = compositor.Resolution{Width: config.DefaultWidth, Height: config.DefaultHeight}.String()
	}
	target, err := compositor.ParseResolution(resolution)
	if err != nil {
		return "", err
	}

	bg, err := compositor.ParseBackground(c.opts.Background)
	if err != nil {
		return "", err
	}

	coverPath := c.opts.CoverPath
	tempCover := false
	if coverPath == "" {
		coverPath, err = c.ffmpeg.ExtractCover(c.opts.InputPath)
		if err != nil {
			return "", errors.Wrap(err, "provide a cover image with --cover")
		}
		tempCover = true
	} else if _, err := os.Stat(coverPath); err != nil {
		return "", errors.Wrapf(err, "cover file not found: %s", coverPath)
	}
	defer func() {
		if tempCover {
			os.Remove(coverPath)
		}
	}()

	img, err := c.ffmpeg.ProbeImage(coverPath)
	if err != nil {
		return "", err
	}

	comp := &compositor.Compositor{WideAspectThreshold: c.opts.WideAspectThreshold}
	plan, err := comp.Plan(img, target, bg)
	if err != nil {
		return "", err
	}

	if c.opts.Verbose {
		log.Printf("Cover dimensions: %dx%d (aspect %.3f)\n", img.Width, img.Height, img.Aspect())
		log.Printf("Target resolution: %s, background: %s\n", target, bg)
		log.Printf("Composition is layered: %v\n", plan.Layered())
	}

	if err := c.ffmpeg.Encode(coverPath, c.opts.InputPath, outputPath, plan); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Upload validates and uploads an existing video, optionally setting a
// thumbnail afterwards. Thumbnail failures come back as warnings, never as
// errors.
func Upload(ctx context.Context, opts *config.UploadOptions, creds config.Credentials, sink uploader.ProgressSink) (*uploader.Result, []string, error) {
	meta, err := buildMetadata(opts.Title, opts.Description, opts.Tags, opts.Category, opts.Privacy, opts.MadeForKids)
	if err != nil {
		return nil, nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, nil, err
	}

	if _, err := os.Stat(opts.VideoPath); err != nil {
		return nil, nil, errors.Wrapf(err, "video file not found: %s", opts.VideoPath)
	}

	client, err := youtube.NewClient(ctx, creds, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}

	driver := uploader.NewDriver(client.ResumableTransport(), opts.ChunkSize)
	session := uploader.NewSession(opts.VideoPath, meta)

	result, err := driver.Upload(ctx, session, sink)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if opts.ThumbnailPath != "" {
		if err := client.SetThumbnail(ctx, result.RemoteID, opts.ThumbnailPath); err != nil {
			warnings = append(warnings, "could not set thumbnail: "+err.Error())
		}
	}

	return result, warnings, nil
}

// Job is a fully resolved publish request: explicit flags merged over the
// metadata document, paths made absolute, category and privacy resolved.
type Job struct {
	AudioPath     string
	CoverPath     string
	ThumbnailPath string
	Meta          uploader.Metadata
	Background    string
	Resolution    string
	ChunkSize     int64
	VideoOnly     bool
	KeepVideo     bool
	Verbose       bool
}

// BuildJob merges publish options with the metadata document (when given)
// and validates the result far enough to fail fast before any conversion.
func BuildJob(opts *config.PublishOptions) (*Job, error) {
	doc := &metadata.Document{}
	if opts.MetadataPath != "" {
		loaded, err := metadata.Load(opts.MetadataPath)
		if err != nil {
			return nil, err
		}
		loaded.ResolvePaths(filepath.Dir(opts.MetadataPath))
		doc = loaded
	}

	merged := doc.Merge(metadata.Overrides{
		Title:       opts.Title,
		Description: opts.Description,
		Tags:        opts.Tags,
		Cover:       opts.CoverPath,
		Category:    opts.Category,
		Privacy:     opts.Privacy,
		Thumbnail:   opts.ThumbnailPath,
	})

	audio := opts.AudioPath
	if audio == "" {
		audio = merged.Audio
	}
	if audio == "" {
		return nil, errors.WithStack(ErrNoAudio)
	}
	if _, err := os.Stat(audio); err != nil {
		return nil, errors.Wrapf(err, "audio file not found: %s", audio)
	}

	if merged.Title == "" && !opts.VideoOnly {
		return nil, errors.WithStack(ErrNoTitle)
	}

	meta, err := buildMetadata(
		merged.Title,
		metadata.BuildDescription(merged.Description, merged.Source),
		merged.Tags,
		merged.Category,
		merged.Privacy,
		merged.MadeForKids,
	)
	if err != nil && !opts.VideoOnly {
		return nil, err
	}

	return &Job{
		AudioPath:     audio,
		CoverPath:     merged.Cover,
		ThumbnailPath: merged.Thumbnail,
		Meta:          meta,
		Background:    opts.Background,
		Resolution:    opts.Resolution,
		ChunkSize:     opts.ChunkSize,
		VideoOnly:     opts.VideoOnly,
		KeepVideo:     opts.KeepVideo,
		Verbose:       opts.Verbose,
	}, nil
}

func buildMetadata(title, description string, tags []string, category, privacy string, madeForKids bool) (uploader.Metadata, error) {
	if category == "" {
		category = "music"
	}
	categoryID, err := youtube.ResolveCategory(category)
	if err != nil {
		return uploader.Metadata{}, err
	}

	if privacy == "" {
		privacy = string(types.PrivacyPrivate)
	}
	priv, err := types.ParsePrivacy(privacy)
	if err != nil {
		return uploader.Metadata{}, errors.Wrap(uploader.ErrValidation, err.Error())
	}

	return uploader.Metadata{
		Title:       title,
		Description: description,
		Tags:        tags,
		CategoryID:  categoryID,
		Privacy:     priv,
		MadeForKids: madeForKids,
	}, nil
}

// PublishOutcome reports what a publish run produced.
type PublishOutcome struct {
	VideoPath string
	Upload    *uploader.Result
	Warnings  []string
}

// Publisher runs the combined convert-then-upload flow.
type Publisher struct {
	opts  *config.PublishOptions
	creds config.Credentials
}

// NewPublisher creates a new publisher
func NewPublisher(opts *config.PublishOptions, creds config.Credentials) *Publisher {
	return &Publisher{opts: opts, creds: creds}
}

// Process converts the audio, uploads the result, and optionally sets the
// thumbnail. The intermediate video is deleted after a successful upload
// unless KeepVideo is set.
func (p *Publisher) Process(ctx context.Context, sink uploader.ProgressSink) (*PublishOutcome, error) {
	job, err := BuildJob(p.opts)
	if err != nil {
		return nil, err
	}

	// Build the client before the (expensive) encode so credential problems
	// surface immediately.
	var client *youtube.Client
	if !job.VideoOnly {
		client, err = youtube.NewClient(ctx, p.creds, job.Verbose)
		if err != nil {
			return nil, err
		}
	}

	converter := NewConverter(&config.ConvertOptions{
		InputPath:  job.AudioPath,
		CoverPath:  job.CoverPath,
		Resolution: job.Resolution,
		Background: job.Background,
		Overwrite:  true,
		Verbose:    job.Verbose,
	})
	videoPath, err := converter.Process()
	if err != nil {
		return nil, err
	}

	outcome := &PublishOutcome{VideoPath: videoPath}
	if job.VideoOnly {
		return outcome, nil
	}

	driver := uploader.NewDriver(client.ResumableTransport(), job.ChunkSize)
	session := uploader.NewSession(videoPath, job.Meta)

	result, err := driver.Upload(ctx, session, sink)
	if err != nil {
		return nil, err
	}
	outcome.Upload = result

	if job.ThumbnailPath != "" {
		if err := client.SetThumbnail(ctx, result.RemoteID, job.ThumbnailPath); err != nil {
			outcome.Warnings = append(outcome.Warnings, "could not set thumbnail: "+err.Error())
		}
	}

	if !job.KeepVideo {
		if err := os.Remove(videoPath); err == nil {
			outcome.VideoPath = ""
		}
	}

	return outcome, nil
}
