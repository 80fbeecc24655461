// Package mirror serves recorded article and volume fixtures with the same
// shapes as the Qiita items API and the Google Books volumes API.
package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	itemsFile   = "items.json"
	volumesFile = "volumes.json"
)

// Item mirrors one Qiita article.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Body        string `json:"body"`
	LikesCount  int    `json:"likes_count"`
	StocksCount int    `json:"stocks_count"`
}

type Identifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
}

type VolumeInfo struct {
	Title               string       `json:"title"`
	Categories          []string     `json:"categories,omitempty"`
	Language            string       `json:"language,omitempty"`
	IndustryIdentifiers []Identifier `json:"industryIdentifiers,omitempty"`
	ImageLinks          *ImageLinks  `json:"imageLinks,omitempty"`
}

// Volume mirrors one Google Books volume.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type Fixtures struct {
	Items   []Item
	Volumes []Volume
}

// Load reads items.json and volumes.json from dir. A missing file is an
// empty list.
func Load(dir string) (*Fixtures, error) {
	f := &Fixtures{}
	if err := readJSON(filepath.Join(dir, itemsFile), &f.Items); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, volumesFile), &f.Volumes); err != nil {
		return nil, err
	}
	return f, nil
}

// Save writes both fixture files into dir.
func Save(dir string, f *Fixtures) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, itemsFile), f.Items); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, volumesFile), f.Volumes)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	// validate JSON so a bad file doesn't silently serve nothing
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s invalid JSON: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
