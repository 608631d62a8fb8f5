package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Output receives one rendered exchange per response.
type Output interface {
	Write(id string, contents string)
}

// DirOutput writes every exchange to its own file in a directory.
type DirOutput struct {
	directory string
}

// NewDirOutput empties dir so it only holds the exchanges of this run.
func NewDirOutput(dir string) (DirOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return DirOutput{}, fmt.Errorf("clear %s: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return DirOutput{}, fmt.Errorf("create %s: %w", dir, err)
	}
	return DirOutput{directory: dir}, nil
}

func (o DirOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
