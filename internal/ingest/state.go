package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"bioterms/internal/model"
)

// stateRecord is the per-vocabulary sidecar persisted under
// <dataDir>/state/<prefix>.json, tracking the Absent -> Downloaded ->
// Loaded -> Embedded position across process restarts. Loaded/Embedded
// counts are always re-derived from the stores at status() time; only the
// state enum and download timestamp live here, since everything else is
// reconstructible (matching the cache's "advisory, never load-bearing"
// design in spec.md §4.9).
type stateRecord struct {
	Prefix       model.Prefix     `json:"prefix"`
	State        model.IngestState `json:"state"`
	DownloadedAt time.Time        `json:"downloadedAt,omitempty"`
}

func stateFilePath(dataDir string, prefix model.Prefix) string {
	return filepath.Join(dataDir, "state", string(prefix)+".json")
}

func readState(dataDir string, prefix model.Prefix) stateRecord {
	path := stateFilePath(dataDir, prefix)
	data, err := os.ReadFile(path)
	if err != nil {
		return stateRecord{Prefix: prefix, State: model.StateAbsent}
	}
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return stateRecord{Prefix: prefix, State: model.StateAbsent}
	}
	return rec
}

func writeState(dataDir string, rec stateRecord) error {
	path := stateFilePath(dataDir, rec.Prefix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func removeState(dataDir string, prefix model.Prefix) error {
	err := os.Remove(stateFilePath(dataDir, prefix))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
