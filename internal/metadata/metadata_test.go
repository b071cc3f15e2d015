package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("json document", func(t *testing.T) {
		path := writeFile(t, dir, "publish.json", `{
			"title": "My Song",
			"tags": ["music", "ai"],
			"privacy": "unlisted",
			"madeForKids": false,
			"audio": "song.mp3",
			"source": {"generator": "suno-cli", "model": "V4_5ALL"}
		}`)

		doc, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "My Song", doc.Title)
		assert.Equal(t, []string{"music", "ai"}, doc.Tags)
		assert.Equal(t, "unlisted", doc.Privacy)
		require.NotNil(t, doc.Source)
		assert.Equal(t, "suno-cli", doc.Source.Generator)
	})

	t.Run("yaml document", func(t *testing.T) {
		path := writeFile(t, dir, "publish.yaml", `title: My Song
tags:
  - music
privacy: private
audio: song.mp3
cover: art.png
`)

		doc, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "My Song", doc.Title)
		assert.Equal(t, "art.png", doc.Cover)
		assert.Equal(t, "private", doc.Privacy)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeFile(t, dir, "broken.json", `{"title": `)
		_, err := Load(path)
		assert.True(t, errors.Is(err, ErrInvalidDocument))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}

func TestResolvePaths(t *testing.T) {
	doc := &Document{
		Audio:     "song.mp3",
		Cover:     "art.png",
		Thumbnail: "/abs/thumb.jpg",
	}
	doc.ResolvePaths("/home/user/proj")

	assert.Equal(t, filepath.Join("/home/user/proj", "song.mp3"), doc.Audio)
	assert.Equal(t, filepath.Join("/home/user/proj", "art.png"), doc.Cover)
	// Absolute paths stay untouched.
	assert.Equal(t, "/abs/thumb.jpg", doc.Thumbnail)
}

func TestMerge(t *testing.T) {
	doc := &Document{
		Title:    "Doc Title",
		Tags:     []string{"doc"},
		Privacy:  "private",
		Category: "music",
		Cover:    "doc-cover.jpg",
	}

	t.Run("explicit fields win", func(t *testing.T) {
		merged := doc.Merge(Overrides{Title: "Flag Title", Privacy: "public"})
		assert.Equal(t, "Flag Title", merged.Title)
		assert.Equal(t, "public", merged.Privacy)
		// Untouched fields come from the document.
		assert.Equal(t, "music", merged.Category)
		assert.Equal(t, []string{"doc"}, merged.Tags)
	})

	t.Run("empty overrides keep document values", func(t *testing.T) {
		merged := doc.Merge(Overrides{})
		assert.Equal(t, doc.Title, merged.Title)
		assert.Equal(t, doc.Cover, merged.Cover)
	})

	t.Run("merge does not mutate the document", func(t *testing.T) {
		doc.Merge(Overrides{Title: "Other"})
		assert.Equal(t, "Doc Title", doc.Title)
	})
}

func TestBuildDescription(t *testing.T) {
	t.Run("description only", func(t *testing.T) {
		assert.Equal(t, "hello", BuildDescription("hello", nil))
	})

	t.Run("with source attribution", func(t *testing.T) {
		got := BuildDescription("hello", &Source{Generator: "suno-cli", Style: "pop", Model: "V4"})
		assert.Equal(t, "hello\n\n---\nGenerated with suno-cli\nStyle: pop\nModel: V4", got)
	})

	t.Run("source only", func(t *testing.T) {
		got := BuildDescription("", &Source{Generator: "suno-cli"})
		assert.Equal(t, "---\nGenerated with suno-cli", got)
	})

	t.Run("empty source struct adds nothing", func(t *testing.T) {
		assert.Equal(t, "hello", BuildDescription("hello", &Source{}))
	})
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publish.json")

	require.NoError(t, WriteTemplate(path, "mytrack.mp3"))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mytrack.mp3", doc.Audio)
	assert.Equal(t, "unlisted", doc.Privacy)
	require.NotNil(t, doc.Source)
	assert.Equal(t, "suno-cli", doc.Source.Generator)
}
