// Package viewer materializes captured payloads as artifacts a user can
// open. The file viewer writes pretty-printed JSON files into a directory
// and keeps an index sidecar linking each artifact back to the expression
// and source location it came from.
package viewer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/jsonpeek/internal/capture"
	"github.com/dshills/jsonpeek/internal/logging"
)

// indexName is the sidecar file tracking artifacts in a capture directory.
const indexName = "index.json"

// FileViewer writes capture artifacts to a directory.
type FileViewer struct {
	dir    string
	log    *logging.Logger
	pretty bool

	mu    sync.Mutex
	newID func() string
}

// FileViewerOptions configures a FileViewer.
type FileViewerOptions struct {
	// Dir is the artifact directory. Required; created on first write.
	Dir string

	// Log receives operational messages. Defaults to a discard logger.
	Log *logging.Logger

	// Compact disables pretty-printing.
	Compact bool
}

// NewFileViewer creates a file viewer.
func NewFileViewer(opts FileViewerOptions) (*FileViewer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("viewer: directory is required")
	}

	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	return &FileViewer{
		dir:    opts.Dir,
		log:    log,
		pretty: !opts.Compact,
		newID:  shortID,
	}, nil
}

// Materialize writes a payload as `<label>-<id>.json` in the viewer
// directory and records it in the index sidecar. It returns the artifact
// file name. Payloads that are not valid JSON are stored verbatim, since
// some runtimes render values in their own notation rather than JSON.
func (v *FileViewer) Materialize(payload string, meta capture.Metadata) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return "", fmt.Errorf("viewer: create %s: %w", v.dir, err)
	}

	body := []byte(payload)
	if gjson.ValidBytes(body) {
		if v.pretty {
			body = pretty.Pretty(body)
		}
	} else {
		v.log.Logf("payload for %q is not JSON, storing verbatim", meta.Expression)
	}

	name := fmt.Sprintf("%s-%s.json", meta.Label, v.newID())
	path := filepath.Join(v.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("viewer: write %s: %w", path, err)
	}

	if err := v.appendIndex(name, meta); err != nil {
		// The artifact exists; a stale index is not worth failing over.
		v.log.Errorf("update %s: %v", indexName, err)
	}

	v.log.Logf("materialized %s", name)
	return name, nil
}

// appendIndex adds an artifact entry to the index sidecar.
func (v *FileViewer) appendIndex(name string, meta capture.Metadata) error {
	indexPath := filepath.Join(v.dir, indexName)

	index, err := os.ReadFile(indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		index = []byte(`{"artifacts":[]}`)
	}

	entry := map[string]interface{}{
		"artifact":   name,
		"expression": meta.Expression,
		"file":       meta.FilePath,
		"line":       meta.Line,
		"capturedAt": time.Now().UTC().Format(time.RFC3339),
	}

	index, err = sjson.SetBytes(index, "artifacts.-1", entry)
	if err != nil {
		return err
	}

	return os.WriteFile(indexPath, pretty.Pretty(index), 0o644)
}

// Index returns the recorded artifact entries, oldest first.
func (v *FileViewer) Index() ([]IndexEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	index, err := os.ReadFile(filepath.Join(v.dir, indexName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("viewer: read %s: %w", indexName, err)
	}

	var entries []IndexEntry
	gjson.GetBytes(index, "artifacts").ForEach(func(_, item gjson.Result) bool {
		entries = append(entries, IndexEntry{
			Artifact:   item.Get("artifact").String(),
			Expression: item.Get("expression").String(),
			File:       item.Get("file").String(),
			Line:       int(item.Get("line").Int()),
		})
		return true
	})
	return entries, nil
}

// IndexEntry is one artifact record from the index sidecar.
type IndexEntry struct {
	Artifact   string
	Expression string
	File       string
	Line       int
}

// shortID returns a short uniquifier for artifact names.
func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
