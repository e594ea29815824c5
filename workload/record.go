package workload

// This file contains run recording functionality for saving per-phase
// output and result metadata to the log directory.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fsbench/fsbench/model"
)

// ResultFile is the metadata file name inside each run directory.
const ResultFile = "result.json"

// recorder owns a single run's diagnostic directory:
// <logdir>/<timestamp>-<project>-<id8>/ with clone.log, build.log and
// result.json.
type recorder struct {
	dir   string
	files []*os.File
}

// newRecorder creates the run directory. A nil recorder is returned
// when logDir is empty or creation fails; all its methods are safe to
// call on nil.
func newRecorder(logDir string, res *model.Result) (*recorder, error) {
	if logDir == "" {
		return nil, nil
	}

	shortID := res.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("%s-%s-%s",
		res.Timestamp.Format("20060102-150405"), res.Project, shortID)
	dir := filepath.Join(logDir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	return &recorder{dir: dir}, nil
}

// phaseLog returns the writer capturing a phase's combined subprocess
// output.
func (rec *recorder) phaseLog(phase string) io.Writer {
	if rec == nil {
		return io.Discard
	}

	f, err := os.Create(filepath.Join(rec.dir, phase+".log"))
	if err != nil {
		return io.Discard
	}
	rec.files = append(rec.files, f)
	return f
}

// finish writes the result metadata and closes the phase logs. Recording
// failures are never allowed to fail the run itself.
func (rec *recorder) finish(logger zerolog.Logger, res *model.Result) {
	if rec == nil {
		return
	}

	for _, f := range rec.files {
		if err := f.Close(); err != nil {
			logger.Debug().Err(err).Str("file", f.Name()).Msg("Failed to close phase log")
		}
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to marshal run result")
		return
	}

	path := filepath.Join(rec.dir, ResultFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to record run result")
		return
	}

	logger.Debug().Str("dir", rec.dir).Str("id", res.ID).Msg("Recorded run")
}
