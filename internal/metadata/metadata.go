// Package metadata loads publish documents (JSON or YAML) describing a video
// to upload, resolves relative file paths against the document's directory,
// and merges explicit caller overrides over document fields.
package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a metadata file cannot be parsed.
var ErrInvalidDocument = errors.New("invalid metadata document")

// Source carries attribution for generated audio, appended to descriptions.
type Source struct {
	Generator string `json:"generator,omitempty" yaml:"generator,omitempty"`
	Style     string `json:"style,omitempty" yaml:"style,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Document is a publish.json / publish.yaml file.
type Document struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Privacy     string   `json:"privacy,omitempty" yaml:"privacy,omitempty"`
	MadeForKids bool     `json:"madeForKids" yaml:"madeForKids"`
	Audio       string   `json:"audio,omitempty" yaml:"audio,omitempty"`
	Cover       string   `json:"cover,omitempty" yaml:"cover,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Source      *Source  `json:"source,omitempty" yaml:"source,omitempty"`
}

// Load reads a metadata document. The format is chosen by extension: .yaml
// and .yml parse as YAML, everything else as JSON.
func Load(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata file %s", path)
	}

	doc := &Document{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, doc); err != nil {
			return nil, errors.Wrapf(ErrInvalidDocument, "%s: %v", path, err)
		}
	default:
		if err := json.Unmarshal(content, doc); err != nil {
			return nil, errors.Wrapf(ErrInvalidDocument, "%s: %v", path, err)
		}
	}

	return doc, nil
}

// ResolvePaths rewrites the document's relative audio/cover/thumbnail paths
// against baseDir (normally the document's own directory).
func (d *Document) ResolvePaths(baseDir string) {
	d.Audio = resolvePath(d.Audio, baseDir)
	d.Cover = resolvePath(d.Cover, baseDir)
	d.Thumbnail = resolvePath(d.Thumbnail, baseDir)
}

func resolvePath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Overrides are explicit caller-supplied fields that take precedence over the
// document's values. Empty fields leave the document value in place.
type Overrides struct {
	Title       string
	Description string
	Tags        []string
	Cover       string
	Category    string
	Privacy     string
	Thumbnail   string
}

// Merge applies overrides to a copy of the document.
func (d *Document) Merge(o Overrides) *Document {
	out := *d
	if o.Title != "" {
		out.Title = o.Title
	}
	if o.Description != "" {
		out.Description = o.Description
	}
	if len(o.Tags) > 0 {
		out.Tags = o.Tags
	}
	if o.Cover != "" {
		out.Cover = o.Cover
	}
	if o.Category != "" {
		out.Category = o.Category
	}
	if o.Privacy != "" {
		out.Privacy = o.Privacy
	}
	if o.Thumbnail != "" {
		out.Thumbnail = o.Thumbnail
	}
	return &out
}

// BuildDescription assembles the final video description, appending source
// attribution when present.
func BuildDescription(description string, source *Source) string {
	parts := []string{}
	if description != "" {
		parts = append(parts, description)
	}

	if source != nil {
		lines := []string{}
		if source.Generator != "" {
			lines = append(lines, "Generated with "+source.Generator)
		}
		if source.Style != "" {
			lines = append(lines, "Style: "+source.Style)
		}
		if source.Model != "" {
			lines = append(lines, "Model: "+source.Model)
		}
		if len(lines) > 0 {
			parts = append(parts, "---\n"+strings.Join(lines, "\n"))
		}
	}

	return strings.Join(parts, "\n\n")
}

// WriteTemplate writes a starter publish.json to path, referencing audioFile
// when given.
func WriteTemplate(path, audioFile string) error {
	if audioFile == "" {
		audioFile = "song.mp3"
	}

	template := &Document{
		Title:       "Song Title",
		Description: "Video description here",
		Tags:        []string{"music", "ai"},
		Category:    "music",
		Privacy:     "unlisted",
		MadeForKids: false,
		Audio:       audioFile,
		Cover:       "cover.jpg",
		Source: &Source{
			Generator: "suno-cli",
			Style:     "pop, upbeat",
			Model:     "V4_5ALL",
		},
	}

	content, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.Wrapf(os.WriteFile(path, append(content, '\n'), 0644),
		"failed to write template %s", path)
}
