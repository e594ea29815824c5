// Package history loads recorded benchmark runs from the log directory.
package history

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fsbench/fsbench/model"
	"github.com/fsbench/fsbench/workload"
)

type Entry struct {
	Result   model.Result
	FullPath string
}

// Root verifies the log directory exists and returns it.
func Root(logDir string) (string, error) {
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		return "", fmt.Errorf("no recorded runs found in %s", logDir)
	}
	return logDir, nil
}

// LoadEntries loads every recorded run below root, newest first.
// Unparseable entries are skipped with a warning rather than failing
// the listing.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			resultPath := filepath.Join(path, workload.ResultFile)
			if _, err := os.Stat(resultPath); err == nil {
				res, err := parseResult(resultPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", resultPath).Msg("Failed to parse run result")
					return nil
				}

				entries = append(entries, Entry{
					Result:   res,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Result.Timestamp.After(entries[j].Result.Timestamp)
	})

	return entries, nil
}

func parseResult(path string) (model.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Result{}, err
	}

	var res model.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return model.Result{}, err
	}

	return res, nil
}
