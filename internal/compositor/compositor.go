// Package compositor decides how a cover image of arbitrary aspect ratio is
// composed into a fixed-resolution video frame. It produces an abstract plan
// of image operations; translating the plan into encoder filter syntax lives
// in the ffmpeg package.
package compositor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/calegria/mp3tube/config"
)

var (
	ErrInvalidImage      = errors.New("invalid image dimensions")
	ErrInvalidResolution = errors.New("invalid target resolution")
	ErrInvalidBackground = errors.New("invalid background mode")
)

// Resolution is a target frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) Aspect() float64 {
	return float64(r.Width) / float64(r.Height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses a "WIDTHxHEIGHT" string such as "1920x1080".
func ParseResolution(s string) (Resolution, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return Resolution{}, errors.Wrapf(ErrInvalidResolution, "expected WIDTHxHEIGHT, got %q", s)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return Resolution{}, errors.Wrapf(ErrInvalidResolution, "bad width in %q", s)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return Resolution{}, errors.Wrapf(ErrInvalidResolution, "bad height in %q", s)
	}

	res := Resolution{Width: width, Height: height}
	if err := res.Validate(); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

func (r Resolution) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrInvalidResolution, "%dx%d", r.Width, r.Height)
	}
	return nil
}

// Image describes a source image whose dimensions have already been probed.
type Image struct {
	Path   string
	Width  int
	Height int
}

func (im Image) Aspect() float64 {
	return float64(im.Width) / float64(im.Height)
}

// BackgroundKind selects how non-landscape covers fill the frame.
type BackgroundKind string

const (
	BackgroundBlur  BackgroundKind = "blur"
	BackgroundColor BackgroundKind = "color"
)

// Background is a validated background mode. For BackgroundColor, Color holds
// either a named color ("black") or a normalized "#rrggbb" value.
type Background struct {
	Kind  BackgroundKind
	Color string
}

func (b Background) String() string {
	if b.Kind == BackgroundBlur {
		return "blur"
	}
	return b.Color
}

// ParseBackground validates a background mode string: "blur", "black", or a
// hex color with 3 or 6 hex digits (with or without a leading '#').
func ParseBackground(s string) (Background, error) {
	switch strings.ToLower(s) {
	case "blur":
		return Background{Kind: BackgroundBlur}, nil
	case "black":
		return Background{Kind: BackgroundColor, Color: "black"}, nil
	}

	hex := strings.TrimPrefix(strings.ToLower(s), "#")
	if len(hex) != 3 && len(hex) != 6 {
		return Background{}, errors.Wrapf(ErrInvalidBackground, "%q", s)
	}
	for _, c := range hex {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Background{}, errors.Wrapf(ErrInvalidBackground, "%q", s)
		}
	}

	// Expand shorthand so downstream consumers always see six digits.
	if len(hex) == 3 {
		var sb strings.Builder
		for _, c := range hex {
			sb.WriteRune(c)
			sb.WriteRune(c)
		}
		hex = sb.String()
	}

	return Background{Kind: BackgroundColor, Color: "#" + hex}, nil
}

// ScaleMode selects how a scale operation treats the source aspect ratio.
// The source is never stretched; each mode scales uniformly.
type ScaleMode string

const (
	// ScaleFit scales to fit entirely inside the target box.
	ScaleFit ScaleMode = "fit"
	// ScaleCover scales to fully cover the target box, cropping overflow.
	ScaleCover ScaleMode = "cover"
	// ScaleFitHeight scales to the target height, leaving width free.
	ScaleFitHeight ScaleMode = "fit-height"
)

type OpKind string

const (
	OpScale   OpKind = "scale"
	OpBlur    OpKind = "blur"
	OpPad     OpKind = "pad"
	OpOverlay OpKind = "overlay"
)

// Op is one step of a composition plan.
type Op struct {
	Kind   OpKind
	Width  int       // scale/pad target width
	Height int       // scale/pad target height
	Mode   ScaleMode // scale only
	Radius int       // blur only
	Color  string    // pad only
}

// Plan is a deterministic sequence of operations producing a frame whose
// aspect ratio equals the target resolution's exactly. When Backdrop is
// non-empty the plan has two derivations of the same source: Backdrop is
// blurred behind the centered Foreground (the final op is the overlay).
type Plan struct {
	Target     Resolution
	Background Background
	Backdrop   []Op
	Foreground []Op
}

// Layered reports whether the plan composites a foreground over a backdrop.
func (p *Plan) Layered() bool {
	return len(p.Backdrop) > 0
}

// Ops returns every operation in the plan in execution order.
func (p *Plan) Ops() []Op {
	out := make([]Op, 0, len(p.Backdrop)+len(p.Foreground))
	out = append(out, p.Backdrop...)
	out = append(out, p.Foreground...)
	return out
}

// Compositor builds composition plans.
type Compositor struct {
	// WideAspectThreshold is the aspect ratio at or above which the source is
	// treated as already landscape. Zero means the default (1.7).
	WideAspectThreshold float64

	// BlurRadius is the box blur radius for blurred backdrops. Zero means the
	// default (30).
	BlurRadius int
}

func (c *Compositor) wideThreshold() float64 {
	if c.WideAspectThreshold > 0 {
		return c.WideAspectThreshold
	}
	return config.DefaultWideAspectThreshold
}

func (c *Compositor) blurRadius() int {
	if c.BlurRadius > 0 {
		return c.BlurRadius
	}
	return config.BlurRadius
}

// Plan decides the operation sequence for composing img into a target frame.
// It is pure: same inputs, same plan.
func (c *Compositor) Plan(img Image, target Resolution, bg Background) (*Plan, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "%s: %dx%d", img.Path, img.Width, img.Height)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{Target: target, Background: bg}

	// Landscape art close enough to the target aspect only needs a uniform
	// scale plus a centered pad to absorb any minor mismatch.
	if img.Aspect() >= c.wideThreshold() {
		plan.Foreground = []Op{
			{Kind: OpScale, Width: target.Width, Height: target.Height, Mode: ScaleFit},
			{Kind: OpPad, Width: target.Width, Height: target.Height, Color: "black"},
		}
		return plan, nil
	}

	// Square or portrait art.
	if bg.Kind == BackgroundBlur {
		plan.Backdrop = []Op{
			{Kind: OpScale, Width: target.Width, Height: target.Height, Mode: ScaleCover},
			{Kind: OpBlur, Radius: c.blurRadius()},
		}
		plan.Foreground = []Op{
			{Kind: OpScale, Width: target.Width, Height: target.Height, Mode: ScaleFitHeight},
			{Kind: OpOverlay},
		}
		return plan, nil
	}

	plan.Foreground = []Op{
		{Kind: OpScale, Width: target.Width, Height: target.Height, Mode: ScaleFitHeight},
		{Kind: OpPad, Width: target.Width, Height: target.Height, Color: bg.Color},
	}
	return plan, nil
}
