// Package ffmpeg adapts composition plans to the ffmpeg command line and
// drives the encoder process.
package ffmpeg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/calegria/mp3tube/config"
	"github.com/calegria/mp3tube/internal/compositor"
)

var (
	// ErrNoCoverArt is returned when an MP3 carries no embedded artwork.
	ErrNoCoverArt = errors.New("no cover art found in MP3 file")
	// ErrEncodeFailed wraps a non-zero encoder exit; the message carries the
	// encoder's diagnostic output.
	ErrEncodeFailed = errors.New("ffmpeg failed")
)

// CheckInstalled reports whether the ffmpeg binary is available.
func CheckInstalled() bool {
	return exec.Command("ffmpeg", "-version").Run() == nil
}

// Processor wraps FFmpeg functionality
type Processor struct {
	verbose bool
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(verbose bool) *Processor {
	return &Processor{
		verbose: verbose,
	}
}

// ProbeImage reads the pixel dimensions of an image file via ffprobe.
func (p *Processor) ProbeImage(inputPath string) (compositor.Image, error) {
	stream, err := p.probeVideoStream(inputPath)
	if err != nil {
		return compositor.Image{}, err
	}

	width, wok := stream["width"].(float64)
	height, hok := stream["height"].(float64)
	if !wok || !hok {
		return compositor.Image{}, fmt.Errorf("could not determine image dimensions for %s", inputPath)
	}

	return compositor.Image{
		Path:   inputPath,
		Width:  int(width),
		Height: int(height),
	}, nil
}

// ExtractCover copies the embedded cover art out of an MP3 into a temporary
// file and returns its path. The caller owns the file.
func (p *Processor) ExtractCover(mp3Path string) (string, error) {
	stream, err := p.probeVideoStream(mp3Path)
	if err != nil {
		return "", errors.Wrap(ErrNoCoverArt, mp3Path)
	}

	// Embedded art shows up as an attached picture stream; its codec tells
	// us the right extension for the stream copy.
	ext := ".jpg"
	if codec, ok := stream["codec_name"].(string); ok && codec == "png" {
		ext = ".png"
	}

	tmp, err := os.CreateTemp("", config.TempCoverPrefix+"*"+ext)
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary cover file")
	}
	tmp.Close()

	err = p.run(ffmpeg.Input(mp3Path).
		Output(tmp.Name(), ffmpeg.KwArgs{
			"an":  "",
			"c:v": "copy",
		}).
		OverWriteOutput())
	if err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(ErrNoCoverArt, mp3Path)
	}

	if p.verbose {
		log.Printf("Extracted cover art to %s\n", tmp.Name())
	}

	return tmp.Name(), nil
}

// FilterGraph renders a composition plan to ffmpeg filter syntax. The second
// return value reports whether the graph needs -filter_complex (layered
// plans) rather than -vf.
func FilterGraph(plan *compositor.Plan) (string, bool) {
	if plan.Layered() {
		graph := fmt.Sprintf(
			"[0:v]%s[bg];[0:v]%s[fg];[bg][fg]overlay=(W-w)/2:(H-h)/2",
			renderChain(plan.Backdrop),
			renderChain(dropOverlay(plan.Foreground)),
		)
		return graph, true
	}
	return renderChain(plan.Foreground), false
}

func dropOverlay(ops []compositor.Op) []compositor.Op {
	out := make([]compositor.Op, 0, len(ops))
	for _, op := range ops {
		if op.Kind != compositor.OpOverlay {
			out = append(out, op)
		}
	}
	return out
}

func renderChain(ops []compositor.Op) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case compositor.OpScale:
			parts = append(parts, renderScale(op))
		case compositor.OpBlur:
			parts = append(parts, fmt.Sprintf("boxblur=%d:%d", op.Radius, op.Radius))
		case compositor.OpPad:
			parts = append(parts, fmt.Sprintf(
				"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:%s", op.Width, op.Height, op.Color))
		}
	}
	return strings.Join(parts, ",")
}

func renderScale(op compositor.Op) string {
	switch op.Mode {
	case compositor.ScaleCover:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			op.Width, op.Height, op.Width, op.Height)
	case compositor.ScaleFitHeight:
		return fmt.Sprintf("scale=-1:%d:force_original_aspect_ratio=decrease", op.Height)
	default:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", op.Width, op.Height)
	}
}

// Encode produces an MP4 that loops the composed cover frame for the full
// length of the audio track.
func (p *Processor) Encode(coverPath, audioPath, outputPath string, plan *compositor.Plan) error {
	graph, isComplex := FilterGraph(plan)

	outputKwargs := ffmpeg.KwArgs{
		"i":        audioPath,
		"c:v":      config.VideoCodec,
		"tune":     "stillimage",
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"pix_fmt":  config.PixelFormat,
		"shortest": "",
		"movflags": "+faststart",
		"threads":  GetOptimalThreadCount(),
	}
	if isComplex {
		outputKwargs["filter_complex"] = graph
	} else {
		outputKwargs["vf"] = graph
	}

	if p.verbose {
		log.Printf("Filter graph: %s\n", graph)
	}

	stream := ffmpeg.Input(coverPath, ffmpeg.KwArgs{
		"loop":      1,
		"framerate": 1,
	}).
		Output(outputPath, outputKwargs).
		OverWriteOutput()

	return p.run(stream)
}

// run executes a compiled ffmpeg invocation, capturing stderr so a failure
// surfaces the encoder's own diagnostics.
func (p *Processor) run(stream *ffmpeg.Stream) error {
	cmd := stream.Compile()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if p.verbose {
		log.Printf("Running: %s\n", strings.Join(cmd.Args, " "))
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return errors.Wrap(ErrEncodeFailed, diag)
	}

	return nil
}

func (p *Processor) probeVideoStream(inputPath string) (map[string]interface{}, error) {
	probe, err := ffmpeg.Probe(inputPath)
	if err != nil {
		return nil, fmt.Errorf("error probing %s: %v", inputPath, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, fmt.Errorf("no streams found in %s", inputPath)
	}

	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		if codecType, _ := s["codec_type"].(string); codecType == "video" {
			return s, nil
		}
	}

	return nil, fmt.Errorf("no video stream found in %s", inputPath)
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}
