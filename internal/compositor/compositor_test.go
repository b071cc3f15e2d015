package compositor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	t.Run("valid resolution", func(t *testing.T) {
		res, err := ParseResolution("1920x1080")
		require.NoError(t, err)
		assert.Equal(t, Resolution{Width: 1920, Height: 1080}, res)
	})

	t.Run("uppercase separator", func(t *testing.T) {
		res, err := ParseResolution("1280X720")
		require.NoError(t, err)
		assert.Equal(t, Resolution{Width: 1280, Height: 720}, res)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := ParseResolution("1920")
		assert.True(t, errors.Is(err, ErrInvalidResolution))
	})

	t.Run("zero component", func(t *testing.T) {
		_, err := ParseResolution("1920x0")
		assert.True(t, errors.Is(err, ErrInvalidResolution))
	})

	t.Run("negative component", func(t *testing.T) {
		_, err := ParseResolution("-1920x1080")
		assert.True(t, errors.Is(err, ErrInvalidResolution))
	})
}

func TestParseBackground(t *testing.T) {
	t.Run("blur", func(t *testing.T) {
		bg, err := ParseBackground("blur")
		require.NoError(t, err)
		assert.Equal(t, BackgroundBlur, bg.Kind)
	})

	t.Run("black", func(t *testing.T) {
		bg, err := ParseBackground("black")
		require.NoError(t, err)
		assert.Equal(t, BackgroundColor, bg.Kind)
		assert.Equal(t, "black", bg.Color)
	})

	t.Run("six digit hex", func(t *testing.T) {
		bg, err := ParseBackground("#1a1a2e")
		require.NoError(t, err)
		assert.Equal(t, BackgroundColor, bg.Kind)
		assert.Equal(t, "#1a1a2e", bg.Color)
	})

	t.Run("hex without hash", func(t *testing.T) {
		bg, err := ParseBackground("1A1A2E")
		require.NoError(t, err)
		assert.Equal(t, "#1a1a2e", bg.Color)
	})

	t.Run("three digit hex expands", func(t *testing.T) {
		bg, err := ParseBackground("#abc")
		require.NoError(t, err)
		assert.Equal(t, "#aabbcc", bg.Color)
	})

	t.Run("rejects non-hex string", func(t *testing.T) {
		_, err := ParseBackground("xyz")
		assert.True(t, errors.Is(err, ErrInvalidBackground))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseBackground("#12345")
		assert.True(t, errors.Is(err, ErrInvalidBackground))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseBackground("")
		assert.True(t, errors.Is(err, ErrInvalidBackground))
	})
}

func mustBackground(t *testing.T, s string) Background {
	t.Helper()
	bg, err := ParseBackground(s)
	require.NoError(t, err)
	return bg
}

func TestPlanWideImages(t *testing.T) {
	c := &Compositor{}
	target := Resolution{Width: 1920, Height: 1080}

	// Landscape art never needs a synthesized background, whatever the mode.
	for _, mode := range []string{"blur", "black", "#1a1a2e"} {
		t.Run(mode, func(t *testing.T) {
			plan, err := c.Plan(Image{Path: "wide.jpg", Width: 1920, Height: 1080}, target, mustBackground(t, mode))
			require.NoError(t, err)

			assert.False(t, plan.Layered())
			for _, op := range plan.Ops() {
				assert.NotEqual(t, OpBlur, op.Kind)
				assert.NotEqual(t, OpOverlay, op.Kind)
			}

			require.Len(t, plan.Foreground, 2)
			assert.Equal(t, OpScale, plan.Foreground[0].Kind)
			assert.Equal(t, ScaleFit, plan.Foreground[0].Mode)
			assert.Equal(t, OpPad, plan.Foreground[1].Kind)
			assert.Equal(t, "black", plan.Foreground[1].Color)
		})
	}

	t.Run("threshold boundary counts as wide", func(t *testing.T) {
		// 17:10 = 1.7 exactly
		plan, err := c.Plan(Image{Width: 1700, Height: 1000}, target, mustBackground(t, "blur"))
		require.NoError(t, err)
		assert.False(t, plan.Layered())
	})

	t.Run("just under threshold is not wide", func(t *testing.T) {
		plan, err := c.Plan(Image{Width: 1690, Height: 1000}, target, mustBackground(t, "blur"))
		require.NoError(t, err)
		assert.True(t, plan.Layered())
	})
}

func TestPlanSquareImageBlur(t *testing.T) {
	c := &Compositor{}

	plan, err := c.Plan(
		Image{Path: "cover.png", Width: 500, Height: 500},
		Resolution{Width: 1920, Height: 1080},
		mustBackground(t, "blur"),
	)
	require.NoError(t, err)

	require.True(t, plan.Layered())

	require.Len(t, plan.Backdrop, 2)
	assert.Equal(t, OpScale, plan.Backdrop[0].Kind)
	assert.Equal(t, ScaleCover, plan.Backdrop[0].Mode)
	assert.Equal(t, OpBlur, plan.Backdrop[1].Kind)
	assert.Equal(t, 30, plan.Backdrop[1].Radius)

	// Foreground fits the target height with no crop, then is centered.
	require.Len(t, plan.Foreground, 2)
	assert.Equal(t, OpScale, plan.Foreground[0].Kind)
	assert.Equal(t, ScaleFitHeight, plan.Foreground[0].Mode)
	assert.Equal(t, OpOverlay, plan.Foreground[1].Kind)
}

func TestPlanSquareImagePadded(t *testing.T) {
	c := &Compositor{}
	target := Resolution{Width: 1920, Height: 1080}

	t.Run("black pads with black", func(t *testing.T) {
		plan, err := c.Plan(Image{Width: 800, Height: 800}, target, mustBackground(t, "black"))
		require.NoError(t, err)

		assert.False(t, plan.Layered())
		require.Len(t, plan.Foreground, 2)
		assert.Equal(t, ScaleFitHeight, plan.Foreground[0].Mode)
		assert.Equal(t, OpPad, plan.Foreground[1].Kind)
		assert.Equal(t, "black", plan.Foreground[1].Color)
	})

	t.Run("custom color pads with that color", func(t *testing.T) {
		plan, err := c.Plan(Image{Width: 600, Height: 900}, target, mustBackground(t, "#1a1a2e"))
		require.NoError(t, err)

		require.Len(t, plan.Foreground, 2)
		assert.Equal(t, OpPad, plan.Foreground[1].Kind)
		assert.Equal(t, "#1a1a2e", plan.Foreground[1].Color)
	})
}

func TestPlanInvalidInputs(t *testing.T) {
	c := &Compositor{}
	target := Resolution{Width: 1920, Height: 1080}

	t.Run("zero width image", func(t *testing.T) {
		_, err := c.Plan(Image{Width: 0, Height: 500}, target, mustBackground(t, "blur"))
		assert.True(t, errors.Is(err, ErrInvalidImage))
	})

	t.Run("zero height image", func(t *testing.T) {
		_, err := c.Plan(Image{Width: 500, Height: 0}, target, mustBackground(t, "blur"))
		assert.True(t, errors.Is(err, ErrInvalidImage))
	})

	t.Run("bad resolution", func(t *testing.T) {
		_, err := c.Plan(Image{Width: 500, Height: 500}, Resolution{Width: 1920, Height: -1}, mustBackground(t, "blur"))
		assert.True(t, errors.Is(err, ErrInvalidResolution))
	})
}

func TestPlanCustomThreshold(t *testing.T) {
	c := &Compositor{WideAspectThreshold: 1.0}

	// With a 1.0 threshold a square image counts as wide.
	plan, err := c.Plan(Image{Width: 500, Height: 500}, Resolution{Width: 1920, Height: 1080}, mustBackground(t, "blur"))
	require.NoError(t, err)
	assert.False(t, plan.Layered())
}
