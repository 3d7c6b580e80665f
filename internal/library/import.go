package library

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jiemo/player/internal/media"
)

// Node is one entry of an import document. Nodes with children are
// browsable; leaves are playable unless Browsable is set explicitly.
type Node struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Album       string `json:"album,omitempty"`
	AlbumArtURI string `json:"album_art_uri,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	Browsable   bool   `json:"browsable,omitempty"`
	Children    []Node `json:"children,omitempty"`
}

// ParseImport reads a JSON array of nodes and flattens it into items,
// parents first. Top-level nodes are placed under rootID.
func ParseImport(r io.Reader, rootID string) ([]media.Item, error) {
	var nodes []Node
	if err := json.NewDecoder(r).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("failed to decode import: %w", err)
	}

	var items []media.Item
	seen := make(map[string]bool)

	var walk func(parentID string, nodes []Node) error
	walk = func(parentID string, nodes []Node) error {
		for _, n := range nodes {
			if n.ID == "" {
				return fmt.Errorf("node %q under %q has no id", n.Title, parentID)
			}
			if n.ID == rootID {
				return fmt.Errorf("node id %q collides with the root id", n.ID)
			}
			if seen[n.ID] {
				return fmt.Errorf("duplicate node id %q", n.ID)
			}
			seen[n.ID] = true

			items = append(items, media.Item{
				ID:          n.ID,
				ParentID:    parentID,
				Title:       n.Title,
				Subtitle:    n.Subtitle,
				Album:       n.Album,
				AlbumArtURI: n.AlbumArtURI,
				Duration:    time.Duration(n.DurationMS) * time.Millisecond,
				Browsable:   n.Browsable || len(n.Children) > 0,
			})
			if err := walk(n.ID, n.Children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootID, nodes); err != nil {
		return nil, err
	}
	return items, nil
}
