package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run id prefix matches several runs")
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID           string              `json:"id"`
	Label        string              `json:"label,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Integrator   string              `json:"integrator"`
	TStart       float64             `json:"t_start"`
	TEnd         float64             `json:"t_end"`
	Samples      int                 `json:"samples"`
	Coefficients models.Coefficients `json:"coefficients"`
	Equilibrium  *models.Equilibrium `json:"equilibrium,omitempty"`
	Stability    string              `json:"stability,omitempty"`
	Stats        sim.Stats           `json:"stats"`
	Elapsed      time.Duration       `json:"elapsed_ns"`
}

// NewMetadata describes r under a fresh run id.
func NewMetadata(r *experiment.Result, label string) RunMetadata {
	meta := RunMetadata{
		ID:           uuid.NewString(),
		Label:        label,
		Timestamp:    time.Now().UTC(),
		Integrator:   r.Integrator,
		Samples:      r.Trajectory.Len(),
		Coefficients: r.Coefficients,
		Equilibrium:  r.EquilibriumPtr(),
		Stats:        r.Stats,
		Elapsed:      r.Elapsed,
	}
	if n := r.Trajectory.Len(); n > 0 {
		meta.TStart = r.Trajectory.Times[0]
		meta.TEnd = r.Trajectory.Times[n-1]
	}
	if r.Stability != nil {
		meta.Stability = string(r.Stability.Class)
	}
	return meta
}

// Save writes metadata.json and trajectory.csv into a new run directory.
func (s *Store) Save(r *experiment.Result, label string) (*RunMetadata, error) {
	meta := NewMetadata(r, label)
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	if err := writeFile(filepath.Join(runDir, trajectoryFile), func(f *os.File) error {
		return ExportCSV(f, r.Trajectory)
	}); err != nil {
		return nil, fmt.Errorf("write trajectory: %w", err)
	}

	return &meta, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns every readable run, newest first.
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

		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

// Resolve expands a full id or a unique id prefix to the run id.
func (s *Store) Resolve(ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		if _, err := os.Stat(filepath.Join(s.baseDir, ref, metadataFile)); err == nil {
			return ref, nil
		}
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if ref == "" || strings.ContainsAny(ref, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, ref)
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ref) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, ref)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	return match, nil
}

func (s *Store) Load(ref string) (*RunMetadata, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(id)
}

func (s *Store) readMetadata(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(ref string) (sim.Trajectory, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return sim.Trajectory{}, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, id, trajectoryFile))
	if err != nil {
		return sim.Trajectory{}, err
	}
	defer file.Close()

	return ReadCSV(file)
}

// LoadResult rebuilds a run as if it had just been simulated. The
// equilibrium and stability are recomputed from the stored coefficients.
func (s *Store) LoadResult(ref string) (*RunMetadata, *experiment.Result, error) {
	meta, err := s.Load(ref)
	if err != nil {
		return nil, nil, err
	}
	tr, err := s.LoadTrajectory(meta.ID)
	if err != nil {
		return nil, nil, err
	}

	r := &experiment.Result{
		Coefficients: meta.Coefficients,
		Trajectory:   tr,
		Stats:        meta.Stats,
		Integrator:   meta.Integrator,
		Elapsed:      meta.Elapsed,
	}
	r.Equilibrium, r.EquilibriumErr = models.Predict(meta.Coefficients)
	return meta, r, nil
}

func (s *Store) Delete(ref string) error {
	id, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, id))
}
