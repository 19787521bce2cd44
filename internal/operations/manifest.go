package operations

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// PipelineManifest records what every step of a run read and produced
type PipelineManifest struct {
	mu sync.RWMutex

	OperationID string          `json:"operation_id"`
	StartTime   time.Time       `json:"start_time"`
	Steps       []StepExecution `json:"steps"`
	Status      string          `json:"status"` // "running", "completed", "failed"
	LastUpdated time.Time       `json:"last_updated"`
	Error       string          `json:"error,omitempty"`
}

// StepExecution tracks the execution of a single step
type StepExecution struct {
	StepID    string                 `json:"step_id"`
	StepName  string                 `json:"step_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"` // "running", "completed", "failed"
	Inputs    []string               `json:"inputs"`
	Outputs   []string               `json:"outputs"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`

	// Digests maps each output path to the hex BLAKE2b-256 of its content
	Digests map[string]string `json:"digests,omitempty"`
}

// NewPipelineManifest creates a new pipeline manifest
func NewPipelineManifest(operationID string) *PipelineManifest {
	now := time.Now()
	return &PipelineManifest{
		OperationID: operationID,
		StartTime:   now,
		Steps:       []StepExecution{},
		Status:      "running",
		LastUpdated: now,
	}
}

// RecordStepStart records the start of a step execution
func (m *PipelineManifest) RecordStepStart(stepID, stepName string, inputs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Steps = append(m.Steps, StepExecution{
		StepID:    stepID,
		StepName:  stepName,
		StartTime: time.Now(),
		Status:    "running",
		Inputs:    inputs,
	})
	m.LastUpdated = time.Now()
}

// RecordStepCompletion records the files produced by a completed step
func (m *PipelineManifest) RecordStepCompletion(stepID string, outputs []string, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exec := m.last(stepID); exec != nil {
		exec.EndTime = time.Now()
		exec.Duration = exec.EndTime.Sub(exec.StartTime).String()
		exec.Status = "completed"
		exec.Outputs = outputs
		exec.Metadata = metadata
	}
	m.LastUpdated = time.Now()
}

// RecordStepFailure records a step failure
func (m *PipelineManifest) RecordStepFailure(stepID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exec := m.last(stepID); exec != nil {
		exec.EndTime = time.Now()
		exec.Duration = exec.EndTime.Sub(exec.StartTime).String()
		exec.Status = "failed"
		exec.Error = err.Error()
	}
	m.Status = "failed"
	m.Error = fmt.Sprintf("step %s failed: %v", stepID, err)
	m.LastUpdated = time.Now()
}

// RecordStepDigests attaches output digests to the last execution of stepID
func (m *PipelineManifest) RecordStepDigests(stepID string, digests map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exec := m.last(stepID); exec != nil {
		exec.Digests = digests
	}
}

// Digests returns the output digests of the last completed run of stepID
func (m *PipelineManifest) Digests(stepID string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.Steps) - 1; i >= 0; i-- {
		if m.Steps[i].StepID == stepID && m.Steps[i].Status == "completed" {
			out := make(map[string]string, len(m.Steps[i].Digests))
			for k, v := range m.Steps[i].Digests {
				out[k] = v
			}
			return out
		}
	}
	return nil
}

// DigestFiles hashes every file with BLAKE2b-256
func DigestFiles(paths ...string) (map[string]string, error) {
	digests := make(map[string]string, len(paths))
	for _, path := range paths {
		sum, err := digestFile(path)
		if err != nil {
			return nil, err
		}
		digests[path] = sum
	}
	return digests, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Finish marks the run as completed unless a step failed
func (m *PipelineManifest) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status == "running" {
		m.Status = "completed"
	}
	m.LastUpdated = time.Now()
}

// last returns the most recent execution of stepID; callers hold the lock
func (m *PipelineManifest) last(stepID string) *StepExecution {
	for i := len(m.Steps) - 1; i >= 0; i-- {
		if m.Steps[i].StepID == stepID {
			return &m.Steps[i]
		}
	}
	return nil
}

// IsStepCompleted checks if a step has been completed
func (m *PipelineManifest) IsStepCompleted(stepID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, step := range m.Steps {
		if step.StepID == stepID && step.Status == "completed" {
			return true
		}
	}
	return false
}

// Outputs returns the files produced by the last completed run of stepID
func (m *PipelineManifest) Outputs(stepID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.Steps) - 1; i >= 0; i-- {
		if m.Steps[i].StepID == stepID && m.Steps[i].Status == "completed" {
			return append([]string(nil), m.Steps[i].Outputs...)
		}
	}
	return nil
}

// SaveToFile saves the manifest to a JSON file
func (m *PipelineManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*PipelineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest PipelineManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}
