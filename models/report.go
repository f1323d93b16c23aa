package models

import "time"

// ParticipantResult is the outcome of one participant's pipeline run.
type ParticipantResult struct {
	PersonID    string
	DailyFile   string
	OutputPath  string
	DailyRows   int
	EveningRows int
	Err         error
}

// OK reports whether the participant was processed successfully.
func (r *ParticipantResult) OK() bool {
	return r.Err == nil
}

// BatchReport holds the computed summary over one batch run.
type BatchReport struct {
	RunID        string         `yaml:"run_id"`
	InputDir     string         `yaml:"input_dir"`
	OutputDir    string         `yaml:"output_dir"`
	Total        int            `yaml:"total"`
	Succeeded    int            `yaml:"succeeded"`
	Failed       int            `yaml:"failed"`
	Skipped      int            `yaml:"skipped"`
	DailyRows    int            `yaml:"daily_rows"`
	EveningRows  int            `yaml:"evening_rows"`
	Outputs      []string       `yaml:"outputs,omitempty"`
	Failures     []FailureEntry `yaml:"failures,omitempty"`
	FailureKinds map[string]int `yaml:"failure_kinds,omitempty"`
	Elapsed      time.Duration  `yaml:"-"`
}

// FailureEntry describes one failed participant.
type FailureEntry struct {
	PersonID string `yaml:"person_id"`
	File     string `yaml:"file"`
	Kind     string `yaml:"kind"`
	Reason   string `yaml:"reason"`
}
