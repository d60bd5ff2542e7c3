package capture

import (
	"fmt"
	"os"
	"strings"
)

// SourceReader provides source text for expression inference.
type SourceReader interface {
	// Lines returns the lines of the file at path.
	Lines(path string) ([]string, error)
}

// FileSource reads source text from the file system.
type FileSource struct{}

// Lines reads path and splits it into lines.
func (FileSource) Lines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\n"), nil
}
