package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// jobFile is the on-disk handoff format between a request process and a
// detached worker: UTF-8 JSON, one file per flush batch.
type jobFile struct {
	Jobs []Job `json:"jobs"`
}

// WriteJobFile serializes the batch into a fresh file under dir and returns
// its path. The directory is created private to the owner; the file inherits
// os.CreateTemp's 0600 mode, since payloads contain recipient addresses.
func WriteJobFile(dir string, jobs []Job) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}

	data, err := json.Marshal(jobFile{Jobs: jobs})
	if err != nil {
		return "", fmt.Errorf("marshal job batch: %w", err)
	}

	f, err := os.CreateTemp(dir, "emailjobs-*.json")
	if err != nil {
		return "", fmt.Errorf("create job file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write job file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close job file: %w", err)
	}

	return f.Name(), nil
}

// ReadJobFile decodes a flush batch written by WriteJobFile. The caller owns
// the file and is expected to remove it after consuming the jobs.
func ReadJobFile(path string) ([]Job, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var jf jobFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("decode job file %s: %w", path, err)
	}
	return jf.Jobs, nil
}
