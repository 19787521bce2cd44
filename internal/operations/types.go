package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDImpute   = "impute"
	StepIDReindex  = "reindex"
	StepIDReshape  = "reshape"
	StepIDDescribe = "describe"
)

// Pipeline step names
const (
	StepNameImpute   = "Categorical Imputation"
	StepNameReindex  = "Family Reindexing"
	StepNameReshape  = "Child Reshaping"
	StepNameDescribe = "Descriptive Statistics"
)

// Metadata keys recorded on step states and in the manifest
const (
	MetadataRowsRead      = "rows_read"
	MetadataRowsWritten   = "rows_written"
	MetadataSubstitutions = "substitutions"
	MetadataTarget        = "target"
	MetadataShifted       = "families_shifted"
	MetadataOrdering      = "ordering"
	MetadataInput         = "input"
)

// DefaultStepTimeout bounds a single step execution
const DefaultStepTimeout = 5 * time.Minute

// Config represents the pipeline execution configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: make(map[string]time.Duration),
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}
