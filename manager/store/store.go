package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
)

// Mapping is one persisted route entry.
type Mapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// document is the on-disk representation of the routing table.
type document struct {
	Servers []Mapping `json:"servers"`
}

// File persists the routing table as a JSON document on disk. Writes go
// through a temporary file followed by a rename so a crash mid-write never
// corrupts the previous durable state.
type File struct {
	logger *logger.Logger
	path   string
}

// NewFile creates a route store backed by the file at path.
func NewFile(path string) *File {
	return &File{
		logger: log.WithName("route-store"),
		path:   path,
	}
}

// Load reads the persisted routing table. A missing file is treated as an
// empty table and immediately persisted back; malformed content is treated as
// an empty table as well. Neither is a fatal condition.
func (f *File) Load() map[string]string {
	routes := make(map[string]string)

	content, err := os.ReadFile(f.path)
	if err != nil {
		f.logger.Warningf("Route store not readable at path=%s, starting empty: %v", f.path, err)
		if err = f.Save(nil); err != nil {
			f.logger.Errorf("Failed to initialize route store: %v", err)
		}
		return routes
	}

	doc := new(document)
	if err = json.Unmarshal(content, doc); err != nil {
		f.logger.Errorf("Route store at path=%s is malformed, starting empty: %v", f.path, err)
		return routes
	}

	for _, mapping := range doc.Servers {
		routes[mapping.From] = mapping.To
	}

	f.logger.Debugf("Loaded %d route(s) from path=%s", len(routes), f.path)
	return routes
}

// Save atomically replaces the persisted routing table with the given
// mappings.
func (f *File) Save(mappings []Mapping) error {
	if mappings == nil {
		mappings = make([]Mapping, 0)
	}

	content, err := json.MarshalIndent(document{Servers: mappings}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize routes: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	temp := f.path + ".tmp"
	file, err := os.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	if _, err = file.Write(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write routes: %w", err)
	}

	// flush before rename, the rename must only ever expose complete content
	if err = file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync routes: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close temporary store file: %w", err)
	}

	if err = os.Rename(temp, f.path); err != nil {
		return fmt.Errorf("failed to replace route store: %w", err)
	}

	f.logger.Tracef("Persisted %d route(s) to path=%s", len(mappings), f.path)
	return nil
}
