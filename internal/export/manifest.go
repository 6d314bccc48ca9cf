package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestEntry describes one exported surface.
type ManifestEntry struct {
	Surface  string    `json:"surface"`
	Source   string    `json:"source,omitempty"`
	Cycle    uint64    `json:"cycle,omitempty"`
	State    string    `json:"state,omitempty"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Files    []string  `json:"files"`
	Exported time.Time `json:"exported"`
}

// WriteManifest writes entries to path as indented JSON.
func WriteManifest(path string, entries []ManifestEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("export: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("export: manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: read manifest %s: %w", path, err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("export: parse manifest %s: %w", path, err)
	}
	return entries, nil
}
