// Package datasets fetches evaluation datasets and writes per-query run
// reports. Datasets are cached under ~/.ace-go/datasets and downloaded on
// first use.
package datasets

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
)

// GSM8KDatasetURL is where the GSM8K test split is fetched from. It is a
// variable so tests can point it at a local server.
var GSM8KDatasetURL = "https://huggingface.co/datasets/openai/gsm8k/resolve/main/main/test-00000-of-00001.parquet"

// EnsureDataset returns the local path of the named dataset, downloading it
// on first use.
func EnsureDataset(datasetName string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.StorageFailed, "failed to resolve user home directory")
	}

	datasetDir := filepath.Join(homeDir, ".ace-go", "datasets")
	if err := os.MkdirAll(datasetDir, 0755); err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create dataset directory"),
			errors.Fields{"path": datasetDir},
		)
	}

	datasetPath := filepath.Join(datasetDir, datasetName+".parquet")
	if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
		logging.GetLogger().Info(context.Background(), "dataset %s not cached, downloading", datasetName)
		if err := downloadDataset(datasetName, datasetPath); err != nil {
			return "", err
		}
	}

	return datasetPath, nil
}

func downloadDataset(datasetName, datasetPath string) error {
	var url string
	switch datasetName {
	case "gsm8k":
		url = GSM8KDatasetURL
	default:
		return errors.WithFields(
			errors.New(errors.InvalidInput, "unknown dataset"),
			errors.Fields{"dataset": datasetName},
		)
	}

	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to download dataset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.WithFields(
			errors.New(errors.StorageFailed, "dataset download returned a non-OK status"),
			errors.Fields{"status": resp.StatusCode, "url": url},
		)
	}

	// Download into a tmp file so an interrupted fetch is never mistaken
	// for a cached dataset.
	tmpPath := datasetPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to create dataset file")
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.StorageFailed, "failed to save dataset")
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.StorageFailed, "failed to save dataset")
	}
	if err := os.Rename(tmpPath, datasetPath); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.StorageFailed, "failed to save dataset")
	}
	return nil
}
