package model

import "time"

// StepKind tells which kind of collaborator a step calls.
type StepKind string

const (
	ModelStepKind StepKind = "model"
	ToolStepKind  StepKind = "tool"
	FuncStepKind  StepKind = "func"
)

// Status is the state of a run or of a single step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepInfo describes an assembled step.
type StepInfo struct {
	Kind   StepKind `json:"kind" yaml:"kind"`
	Name   string   `json:"name" yaml:"name"`
	Output string   `json:"output" yaml:"output"`
	Inputs []string `json:"inputs" yaml:"inputs"`
	Index  int      `json:"index" yaml:"index"`
}

// StepRecord is the outcome of one executed step.
type StepRecord struct {
	Name     string        `json:"name" yaml:"name"`
	Status   Status        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Index    int           `json:"index" yaml:"index"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

var (
	// StartStep is the virtual step owning the seed keys of a run.
	StartStep = &StepInfo{Name: "start", Index: -1}
	// EndStep is the virtual step reached once every step completed.
	EndStep = &StepInfo{Name: "end", Index: -1}
)
