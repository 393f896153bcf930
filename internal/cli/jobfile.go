package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// name of the file which stores the active job identifier
const jobFilename = "job_id"

func jobFilePath(dataDir string) string {
	return filepath.Join(dataDir, jobFilename)
}

// persistJobID remembers the active job so a later `resume` can pick it up.
func persistJobID(dataDir, jobID string) error {
	return os.WriteFile(jobFilePath(dataDir), []byte(jobID+"\n"), 0600)
}

// loadJobID returns the persisted job identifier, empty when none is stored.
func loadJobID(dataDir string) (string, error) {
	data, err := os.ReadFile(jobFilePath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading job file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// discardJobID forgets the persisted job, used when the job finished or the
// server reports it unknown.
func discardJobID(dataDir string) {
	_ = os.Remove(jobFilePath(dataDir))
}
