package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SpoolDirSource reads records from JSON files dropped into a spool
// directory by an external fetcher (one record per file). Consumed files
// are moved to a processed/ subdirectory so a crashed run can be retried.
type SpoolDirSource struct {
	Dir string
}

func NewSpoolDirSource(dir string) *SpoolDirSource {
	return &SpoolDirSource{Dir: dir}
}

func (s *SpoolDirSource) FetchRecords(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	processedDir := filepath.Join(s.Dir, "processed")
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var records []Record
	for _, name := range names {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		path := filepath.Join(s.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("spool read %s: %v", name, err)
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Printf("spool parse %s: %v", name, err)
			continue
		}
		if rec.MessageID == "" {
			log.Printf("spool skip %s: no message id", name)
			continue
		}
		if err := os.Rename(path, filepath.Join(processedDir, name)); err != nil {
			log.Printf("spool move %s: %v", name, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
