package datasets

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []ace.QueryResult {
	return []ace.QueryResult{
		{
			Query:    ace.Query{ID: "gsm8k-1", Text: "What is 2+2?", Expected: "#### 4"},
			Answer:   "#### 4",
			Correct:  true,
			UsedIDs:  []ace.BulletID{1, 3},
			Steps:    2,
			Duration: 1500 * time.Millisecond,
		},
		{
			Query:    ace.Query{ID: "gsm8k-2", Text: "What is 3*3?", Expected: "#### 9"},
			Correct:  false,
			Failures: []string{"generation: step budget exhausted without a final answer"},
			Steps:    5,
			Duration: 4 * time.Second,
		},
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, sampleResults()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, resultsHeader, rows[0])
	assert.Equal(t, []string{"gsm8k-1", "#### 4", "true", "", "B1 B3", "2", "1.5s"}, rows[1])
	assert.Equal(t, []string{"gsm8k-2", "", "false", "generation: step budget exhausted without a final answer", "", "5", "4s"}, rows[2])
}

func TestWriteResultsCSVCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.csv")
	require.NoError(t, WriteResultsCSV(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
