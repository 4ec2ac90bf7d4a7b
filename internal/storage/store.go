package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

const (
	metadataFile  = "metadata.json"
	snapshotsFile = "snapshots.csv"
)

// ErrRunNotFound is returned when a run id has no directory under the store.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory holding runID.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	Params    pde.Params         `json:"params"`
	Steps     []int              `json:"steps"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Config rebuilds the engine config the run was produced with.
func (m *RunMetadata) Config() (pde.Config, error) {
	return pde.Parse(m.Kind, m.Params)
}

// Run is everything Save persists for one finished simulation.
type Run struct {
	Config    pde.Config
	Snapshots pde.Snapshots
	Metrics   map[string]float64
	Elapsed   time.Duration
}

// Save writes r into a fresh run directory and returns its id. A failed save
// leaves no directory behind.
func (s *Store) Save(r Run) (string, error) {
	steps := pde.Retain(r.Config.StepCount, r.Config.StoreFrames)
	if len(steps) != len(r.Snapshots) {
		return "", fmt.Errorf("storage: %d snapshots for %d retained steps", len(r.Snapshots), len(steps))
	}

	kind := string(r.Config.Kind())
	now := time.Now()

	runID, err := s.reserve(kind, now)
	if err != nil {
		return "", err
	}
	runDir := s.Dir(runID)

	meta := RunMetadata{
		ID:        runID,
		Kind:      kind,
		Timestamp: now,
		Params:    r.Config.Params(),
		Steps:     steps,
		Elapsed:   r.Elapsed,
		Metrics:   r.Metrics,
	}
	if err := writeRun(runDir, meta, r); err != nil {
		_ = os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, r Run) error {
	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	if err := metaFile.Close(); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, snapshotsFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, r.Config, r.Snapshots); err != nil {
		return err
	}
	return csvFile.Close()
}

// reserve creates the run directory, adding a suffix when two runs of the
// same kind land on the same timestamp.
func (s *Store) reserve(kind string, now time.Time) (string, error) {
	base := fmt.Sprintf("%s_%d", kind, now.Unix())
	for i := 0; i < 1000; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		err := os.Mkdir(s.Dir(runID), 0755)
		if err == nil {
			return runID, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("storage: no free run id for %s", base)
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadSnapshots reads the retained fields of runID together with their step
// indices.
func (s *Store) LoadSnapshots(runID string) (pde.Snapshots, []int, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), snapshotsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return pde.Snapshots{}, []int{}, nil
	}

	snaps := make(pde.Snapshots, 0, len(records)-1)
	steps := make([]int, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}

		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, nil, fmt.Errorf("storage: line %d: bad step %q", i+1, record[0])
		}

		field := make([]float64, 0, len(record)-2)
		for j := 2; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: line %d column %d: %w", i+1, j+1, err)
			}
			field = append(field, val)
		}
		steps = append(steps, step)
		snaps = append(snaps, field)
	}

	return snaps, steps, nil
}
