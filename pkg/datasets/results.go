package datasets

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

var resultsHeader = []string{
	"query_id", "answer", "correct", "failure", "used_bullets", "steps", "duration",
}

// WriteResults writes one CSV row per query result, preceded by a header.
func WriteResults(w io.Writer, results []ace.QueryResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(resultsHeader); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to write results header")
	}
	for _, r := range results {
		used := make([]string, len(r.UsedIDs))
		for i, id := range r.UsedIDs {
			used[i] = id.String()
		}
		row := []string{
			r.Query.ID,
			r.Answer,
			strconv.FormatBool(r.Correct),
			strings.Join(r.Failures, "; "),
			strings.Join(used, " "),
			strconv.Itoa(r.Steps),
			r.Duration.String(),
		}
		if err := cw.Write(row); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "failed to write result row"),
				errors.Fields{"query_id": r.Query.ID},
			)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to flush results")
	}
	return nil
}

// WriteResultsCSV writes the results to a file, creating parent directories
// as needed.
func WriteResultsCSV(path string, results []ace.QueryResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create results directory"),
			errors.Fields{"path": path},
		)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create results file"),
			errors.Fields{"path": path},
		)
	}

	if err := WriteResults(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to close results file"),
			errors.Fields{"path": path},
		)
	}
	return nil
}
