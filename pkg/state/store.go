package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes snapshots into one run directory.
type Store struct {
	dir string
	seq int
}

// NewStore creates a fresh run directory under root, named
// run-<timestamp>-<id>, and returns a store writing into it.
func NewStore(root string) (*Store, error) {
	name := fmt.Sprintf("run-%s-%s", time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: create run dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// OpenStore reuses an existing run directory, for appending snapshots after
// a resume.
func OpenStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("state: open run dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("state: %s is not a directory", dir)
	}
	existing, err := snapshotFiles(dir)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, seq: len(existing)}, nil
}

// Dir returns the run directory path.
func (s *Store) Dir() string { return s.dir }

// Save writes one snapshot as state-<stage>-<timestamp>-<seq>.json. The
// sequence number keeps snapshots in write order even within one second.
// The file is written to a temp name and renamed so a crash mid-write never
// leaves a half snapshot as the latest.
func (s *Store) Save(snap *Snapshot) (string, error) {
	name := fmt.Sprintf("state-%s-%s-%04d.json",
		sanitizeStage(snap.Stage), time.Now().Format("20060102-150405"), s.seq)
	s.seq++
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("state: marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("state: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("state: finalize snapshot: %w", err)
	}
	return path, nil
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("state: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("state: parse snapshot %s: %w", path, err)
	}
	if snap.Version > CurrentVersion {
		return nil, fmt.Errorf("state: snapshot %s has version %d, newer than supported %d", path, snap.Version, CurrentVersion)
	}
	return &snap, nil
}

// Latest returns the path of the newest snapshot in a run directory.
func Latest(dir string) (string, error) {
	files, err := snapshotFiles(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("state: no snapshots in %s", dir)
	}
	return files[len(files)-1], nil
}

// ListRuns returns the run directories under root, oldest first.
func ListRuns(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: list runs: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "run-") {
			runs = append(runs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// snapshotFiles lists snapshot paths sorted by name; the embedded timestamp
// makes lexical order chronological.
func snapshotFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("state: list snapshots: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "state-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Slice(files, func(i, j int) bool {
		return snapshotSortKey(files[i]) < snapshotSortKey(files[j])
	})
	return files, nil
}

// snapshotSortKey orders snapshots by their embedded timestamp and sequence
// number, ignoring the variable-length stage segment.
func snapshotSortKey(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	parts := strings.Split(name, "-")
	if len(parts) < 4 {
		return name
	}
	// last three segments: date, time, seq
	return strings.Join(parts[len(parts)-3:], "-")
}

func sanitizeStage(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, stage)
}
