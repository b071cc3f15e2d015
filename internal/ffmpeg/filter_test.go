package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calegria/mp3tube/internal/compositor"
)

func plan(t *testing.T, img compositor.Image, bg string) *compositor.Plan {
	t.Helper()
	background, err := compositor.ParseBackground(bg)
	require.NoError(t, err)

	c := &compositor.Compositor{}
	p, err := c.Plan(img, compositor.Resolution{Width: 1920, Height: 1080}, background)
	require.NoError(t, err)
	return p
}

func TestFilterGraphWideImage(t *testing.T) {
	graph, isComplex := FilterGraph(plan(t, compositor.Image{Width: 1920, Height: 1080}, "blur"))

	assert.False(t, isComplex)
	assert.Equal(t,
		"scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black",
		graph)
}

func TestFilterGraphBlurBackground(t *testing.T) {
	graph, isComplex := FilterGraph(plan(t, compositor.Image{Width: 500, Height: 500}, "blur"))

	assert.True(t, isComplex)
	assert.Equal(t,
		"[0:v]scale=1920:1080:force_original_aspect_ratio=increase,crop=1920:1080,boxblur=30:30[bg];"+
			"[0:v]scale=-1:1080:force_original_aspect_ratio=decrease[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2",
		graph)
}

func TestFilterGraphBlackBackground(t *testing.T) {
	graph, isComplex := FilterGraph(plan(t, compositor.Image{Width: 500, Height: 500}, "black"))

	assert.False(t, isComplex)
	assert.Equal(t,
		"scale=-1:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black",
		graph)
}

func TestFilterGraphCustomColor(t *testing.T) {
	graph, isComplex := FilterGraph(plan(t, compositor.Image{Width: 600, Height: 900}, "#1a1a2e"))

	assert.False(t, isComplex)
	assert.Equal(t,
		"scale=-1:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:#1a1a2e",
		graph)
}
