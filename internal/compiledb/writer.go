package compiledb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer serializes databases to disk atomically: content is written to a
// temporary file in the destination directory and renamed into place, so an
// interrupted run never leaves a partially written artifact visible to
// readers.
type Writer struct {
	outputDir string
}

// NewWriter creates a Writer targeting outputDir, creating it if needed.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// WriteAll writes one artifact per named group plus the ungrouped default.
// Writing nothing at all is an error: an empty database is of no use, and
// overwriting a previously useful one with it would only destroy value.
func (w *Writer) WriteAll(artifacts map[string][]Record) error {
	total := 0
	for _, records := range artifacts {
		total += len(records)
	}
	if total == 0 {
		return fmt.Errorf("no compile commands were extracted; refusing to write an empty %s", DefaultFileName)
	}

	for name, records := range artifacts {
		if err := w.writeOne(name, records); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeOne(name string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	// The temp file must live on the same volume as the destination for the
	// rename to be atomic.
	tmp, err := os.CreateTemp(w.outputDir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file for %s: %w", name, err)
	}

	finalPath := filepath.Join(w.outputDir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s into place: %w", name, err)
	}
	return nil
}
