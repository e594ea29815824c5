package model

import "time"

// Phase identifies one timed unit of work within a workload run.
type Phase string

const (
	PhaseClone Phase = "clone"
	PhaseBuild Phase = "build"
	PhaseStat  Phase = "stat"
)

// PhaseTiming records the timing boundary and outcome of a single phase.
// Start and End bracket only the phase's own work, no setup or teardown.
type PhaseTiming struct {
	// Phase name (clone, build or stat)
	Phase Phase `json:"phase"`
	// Timestamp immediately before the phase began
	Start time.Time `json:"start"`
	// Timestamp immediately after the phase finished
	End time.Time `json:"end"`
	// Wall-clock duration of the phase
	Elapsed time.Duration `json:"elapsed"`
	// Whether the phase completed successfully
	OK bool `json:"ok"`
}

// Result represents a single workload run (clone, build, stat) against
// one target directory.
type Result struct {
	// Unique ID for this run
	ID string `json:"id"`
	// Project identifier (e.g. "redis")
	Project string `json:"project"`
	// Directory the workload ran in
	TargetDir string `json:"target_dir"`
	// Label of the filesystem backend under test (e.g. "disk", "fuse")
	Backend string `json:"backend,omitempty"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Total duration of the run
	Duration time.Duration `json:"duration"`
	// Timings for each phase that was attempted, in execution order
	Phases []PhaseTiming `json:"phases"`
	// Number of regular files found by the stat walk
	FileCount int `json:"file_count"`
	// Number of directories found by the stat walk
	DirCount int `json:"dir_count"`
	// Sum of regular file sizes in bytes
	TotalBytes int64 `json:"total_bytes"`
	// Number of entries the stat walk could not read
	WalkErrors int `json:"walk_errors,omitempty"`
	// Whether every attempted phase succeeded and none were skipped
	// due to failure
	OK bool `json:"ok"`
	// Set when the filesystem session around this run misbehaved
	// (e.g. failed to exit within the drain interval)
	Tainted bool `json:"tainted,omitempty"`
	// Human-readable description of the first failure, if any
	Error string `json:"error,omitempty"`
}

// Timing returns the timing for the named phase and whether that phase
// was attempted at all.
func (r *Result) Timing(p Phase) (PhaseTiming, bool) {
	for _, t := range r.Phases {
		if t.Phase == p {
			return t, true
		}
	}
	return PhaseTiming{}, false
}

// PhaseOK reports whether the named phase ran and succeeded.
func (r *Result) PhaseOK(p Phase) bool {
	t, ok := r.Timing(p)
	return ok && t.OK
}
