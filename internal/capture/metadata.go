package capture

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Metadata links a materialized capture artifact back to its source
// expression, so a later write-back can find what to update.
type Metadata struct {
	// Expression is the evaluated expression text.
	Expression string

	// FilePath is the source file the expression came from.
	FilePath string

	// Label is the sanitized artifact label.
	Label string

	// Line is the zero-based source line of the expression.
	Line int

	// CreatedAt is when the capture completed.
	CreatedAt time.Time
}

// MetadataRegistry maps artifact identities to capture metadata, with
// best-effort reconstruction from an artifact's name when the mapping
// misses (for example after a restart).
type MetadataRegistry struct {
	mu         sync.RWMutex
	byArtifact map[string]Metadata
}

// NewMetadataRegistry creates an empty registry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{
		byArtifact: make(map[string]Metadata),
	}
}

// Store records metadata for an artifact.
func (r *MetadataRegistry) Store(artifactID string, meta Metadata) {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.byArtifact[artifactID] = meta
	r.mu.Unlock()
}

// Lookup returns the metadata for an artifact. When the registry has no
// record it reconstructs what it can from the artifact name; the second
// return reports whether the result came from a real record.
func (r *MetadataRegistry) Lookup(artifactID string) (Metadata, bool) {
	r.mu.RLock()
	meta, ok := r.byArtifact[artifactID]
	r.mu.RUnlock()

	if ok {
		return meta, true
	}
	return reconstructMetadata(artifactID), false
}

// Forget drops the record for an artifact.
func (r *MetadataRegistry) Forget(artifactID string) {
	r.mu.Lock()
	delete(r.byArtifact, artifactID)
	r.mu.Unlock()
}

// Len returns the number of recorded artifacts.
func (r *MetadataRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byArtifact)
}

// reconstructMetadata derives metadata from an artifact name alone. The
// label is the name stem minus any uniquifying suffix; the expression is
// assumed to equal the label, which holds for simple identifiers.
func reconstructMetadata(artifactID string) Metadata {
	stem := strings.TrimSuffix(filepath.Base(artifactID), filepath.Ext(artifactID))

	// Artifact names carry a `-<uniquifier>` suffix; drop it.
	if i := strings.LastIndex(stem, "-"); i > 0 {
		stem = stem[:i]
	}

	return Metadata{
		Expression: stem,
		Label:      stem,
		Line:       -1,
	}
}
