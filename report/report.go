// Package report serializes workload results into an append-only CSV
// file. The file is created with a header row on first write; rows are
// only ever appended, never rewritten, so a partial benchmark run still
// leaves its completed rows behind.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fsbench/fsbench/model"
)

// Columns is the fixed header of the report file. Seconds columns carry
// millisecond resolution; phases that never ran leave their seconds
// column empty and their ok column false.
var Columns = []string{
	"timestamp",
	"project",
	"target_dir",
	"backend",
	"clone_seconds",
	"clone_ok",
	"build_seconds",
	"build_ok",
	"stat_seconds",
	"file_count",
	"total_bytes",
	"overall_ok",
}

// Append writes one row for the result, creating the file and its
// header first if needed. Open-append, never truncate: it is safe to
// call repeatedly and across separate process invocations targeting the
// same path.
func Append(path string, res *model.Result) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	empty, err := isEmpty(f)
	if err != nil {
		return fmt.Errorf("stat report %s: %w", path, err)
	}
	if empty {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}

	if err := w.Write(row(res)); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return f.Close()
}

// WriteHeader creates the report with its header row if the file does
// not exist or is empty. An existing populated report is left untouched.
func WriteHeader(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	empty, err := isEmpty(f)
	if err != nil {
		return fmt.Errorf("stat report %s: %w", path, err)
	}
	if !empty {
		return nil
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return f.Close()
}

func isEmpty(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	return info.Size() == 0, nil
}

func row(res *model.Result) []string {
	return []string{
		res.Timestamp.Format(time.RFC3339),
		res.Project,
		res.TargetDir,
		res.Backend,
		seconds(res, model.PhaseClone),
		strconv.FormatBool(res.PhaseOK(model.PhaseClone)),
		seconds(res, model.PhaseBuild),
		strconv.FormatBool(res.PhaseOK(model.PhaseBuild)),
		seconds(res, model.PhaseStat),
		strconv.Itoa(res.FileCount),
		strconv.FormatInt(res.TotalBytes, 10),
		strconv.FormatBool(res.OK && !res.Tainted),
	}
}

func seconds(res *model.Result, p model.Phase) string {
	t, ok := res.Timing(p)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(t.Elapsed.Seconds(), 'f', 3, 64)
}
