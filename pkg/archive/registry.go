// Package archive implements the mock Zenodo-style archival service: an
// in-memory deposition registry with draft/publish lifecycle, deterministic
// DOI minting and fork-on-change versioning, plus its HTTP surface and a
// client for the same API.
//
// All state lives in process memory; nothing survives a restart. That is
// deliberate: the service stands in for a remote archive during development
// and tests.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for operations on unknown deposition ids.
	ErrNotFound = errors.New("deposition not found")
	// ErrMissingFileOrName is returned when an upload lacks the file
	// payload or the declared name.
	ErrMissingFileOrName = errors.New("missing file or name")
)

// State of a deposition. Drafts have no DOI; published records do.
type State string

const (
	StateDraft State = "draft"
	StateDone  State = "done"
)

// FileRef is one file attached to a deposition.
type FileRef struct {
	Filename    string
	Size        int64
	StoragePath string
}

// Deposition is one archived record state. Forked versions of the same
// logical record share ConceptID and ConceptDOI but have distinct IDs,
// versions and DOIs.
type Deposition struct {
	ID                   int
	ConceptID            string
	Created              time.Time
	Modified             time.Time
	Metadata             map[string]any
	State                State
	Files                []FileRef
	FilesFingerprint     string
	PublishedFingerprint string
	Version              int
	ConceptDOI           string
	DOI                  string
}

// Registry owns all deposition state. A single mutex guards the maps; the
// service makes no stronger concurrency promises than that (no transactional
// isolation, no optimistic tokens).
type Registry struct {
	mu          sync.Mutex
	depositions map[int]*Deposition
	concepts    map[string][]int
	files       *FileStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewRegistry creates a Registry storing uploaded files through the given
// FileStore. A nil logger falls back to slog.Default.
func NewRegistry(files *FileStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		depositions: make(map[int]*Deposition),
		concepts:    make(map[string][]int),
		files:       files,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// makeDOI derives the DOI for a concept version. Deterministic: the same
// inputs always yield the same DOI.
func makeDOI(conceptID string, version int) string {
	return fmt.Sprintf("10.9999/fakenodo.%s.v%d", conceptID, version)
}

// makeConceptDOI derives the concept-level DOI shared by all versions.
func makeConceptDOI(conceptID string) string {
	return "10.9999/fakenodo." + conceptID
}

// fingerprint hashes the file set by sorted filename+size pairs. Content is
// intentionally not hashed; name and size are enough to detect set changes.
func fingerprint(files []FileRef) string {
	sorted := make([]FileRef, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Filename))
		h.Write([]byte(strconv.FormatInt(f.Size, 10)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// nextID allocates max existing id + 1, or 1 for an empty registry.
// Caller must hold the mutex.
func (r *Registry) nextID() int {
	max := 0
	for id := range r.depositions {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Create allocates a new draft deposition with a fresh concept id and
// concept DOI. No DOI is minted until first publish.
func (r *Registry) Create(metadata map[string]any) Deposition {
	if metadata == nil {
		metadata = map[string]any{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	conceptID := uuid.New().String()[:8]
	dep := &Deposition{
		ID:         r.nextID(),
		ConceptID:  conceptID,
		Created:    now,
		Modified:   now,
		Metadata:   metadata,
		State:      StateDraft,
		Version:    1,
		ConceptDOI: makeConceptDOI(conceptID),
	}
	r.depositions[dep.ID] = dep
	r.concepts[conceptID] = append(r.concepts[conceptID], dep.ID)

	r.logger.Info("deposition created", "id", dep.ID, "concept", conceptID)
	return *dep
}

// Get returns a copy of the deposition, or ErrNotFound.
func (r *Registry) Get(id int) (Deposition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.depositions[id]
	if !ok {
		return Deposition{}, ErrNotFound
	}
	return *dep, nil
}

// List returns copies of all depositions, ordered by id.
func (r *Registry) List() []Deposition {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Deposition, 0, len(r.depositions))
	for _, dep := range r.depositions {
		out = append(out, *dep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateMetadata replaces the stored metadata and bumps the modified
// timestamp. Metadata edits never touch version, DOI or fingerprint.
func (r *Registry) UpdateMetadata(id int, metadata map[string]any) (Deposition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.depositions[id]
	if !ok {
		return Deposition{}, ErrNotFound
	}
	if metadata != nil {
		dep.Metadata = metadata
		dep.Modified = r.now()
	}
	return *dep, nil
}

// UploadFile stores the payload under the declared name, records the file
// reference and recomputes the deposition's fingerprint. Both the payload
// and the name are required.
func (r *Registry) UploadFile(id int, payload io.Reader, name string) (FileRef, error) {
	if payload == nil || name == "" {
		return FileRef{}, ErrMissingFileOrName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.depositions[id]
	if !ok {
		return FileRef{}, ErrNotFound
	}

	filename := sanitizeFilename(name)
	path, size, err := r.files.Save(id, filename, payload)
	if err != nil {
		return FileRef{}, fmt.Errorf("store upload: %w", err)
	}

	// Re-uploading a name replaces the previous entry, matching the
	// last-wins overwrite in the file store.
	ref := FileRef{Filename: filename, Size: size, StoragePath: path}
	replaced := false
	for i := range dep.Files {
		if dep.Files[i].Filename == filename {
			dep.Files[i] = ref
			replaced = true
			break
		}
	}
	if !replaced {
		dep.Files = append(dep.Files, ref)
	}
	dep.FilesFingerprint = fingerprint(dep.Files)
	dep.Modified = r.now()

	r.logger.Info("file uploaded", "deposition", id, "file", filename, "size", size)
	return ref, nil
}

// OpenFile opens a stored file of a deposition for reading. Unknown
// depositions, unknown filenames and storage read failures all surface as
// ErrNotFound; masking I/O errors is a deliberate simplification of the
// mock service.
func (r *Registry) OpenFile(id int, filename string) (io.ReadCloser, error) {
	r.mu.Lock()
	var ref *FileRef
	if dep, ok := r.depositions[id]; ok {
		for i := range dep.Files {
			if dep.Files[i].Filename == filename {
				ref = &dep.Files[i]
				break
			}
		}
	}
	r.mu.Unlock()

	if ref == nil {
		return nil, ErrNotFound
	}
	rc, err := r.files.Open(ref.StoragePath)
	if err != nil {
		r.logger.Warn("stored file unreadable, reporting not found",
			"deposition", id, "file", filename, "error", err)
		return nil, ErrNotFound
	}
	return rc, nil
}

// Publish drives the deposition state machine:
//
//   - First publish: mint the DOI for version 1, record the published
//     fingerprint, state becomes done. The same record is returned.
//   - Published with changed files: fork a new deposition under the same
//     concept with version+1 and a fresh DOI; the original is untouched.
//   - Published with unchanged files: idempotent, only modified is bumped.
//
// The forked record is fully registered before being returned.
func (r *Registry) Publish(id int) (Deposition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.depositions[id]
	if !ok {
		return Deposition{}, ErrNotFound
	}

	// First publication.
	if dep.DOI == "" {
		dep.DOI = makeDOI(dep.ConceptID, dep.Version)
		dep.PublishedFingerprint = dep.FilesFingerprint
		dep.State = StateDone
		dep.Modified = r.now()
		r.logger.Info("deposition published", "id", dep.ID, "doi", dep.DOI, "version", dep.Version)
		return *dep, nil
	}

	// File set changed since last publish: fork a new version.
	if dep.FilesFingerprint != dep.PublishedFingerprint {
		now := r.now()
		fork := &Deposition{
			ID:                   r.nextID(),
			ConceptID:            dep.ConceptID,
			Created:              now,
			Modified:             now,
			Metadata:             cloneMetadata(dep.Metadata),
			State:                StateDone,
			Files:                append([]FileRef(nil), dep.Files...),
			FilesFingerprint:     dep.FilesFingerprint,
			PublishedFingerprint: dep.FilesFingerprint,
			Version:              dep.Version + 1,
			ConceptDOI:           dep.ConceptDOI,
			DOI:                  makeDOI(dep.ConceptID, dep.Version+1),
		}
		r.depositions[fork.ID] = fork
		r.concepts[fork.ConceptID] = append(r.concepts[fork.ConceptID], fork.ID)

		r.logger.Info("deposition forked", "id", dep.ID, "fork", fork.ID,
			"doi", fork.DOI, "version", fork.Version)
		return *fork, nil
	}

	// Republish with unchanged files: no new version, no new DOI.
	dep.State = StateDone
	dep.Modified = r.now()
	return *dep, nil
}

// Delete removes the deposition, its stored files and its concept-group
// registration. Deleting an unknown id is a no-op.
func (r *Registry) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dep, ok := r.depositions[id]
	if !ok {
		return
	}
	delete(r.depositions, id)

	for _, f := range dep.Files {
		if err := r.files.Remove(f.StoragePath); err != nil {
			r.logger.Warn("could not remove stored file", "path", f.StoragePath, "error", err)
		}
	}

	ids := r.concepts[dep.ConceptID]
	for i, existing := range ids {
		if existing == id {
			r.concepts[dep.ConceptID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	r.logger.Info("deposition deleted", "id", id)
}

// ListVersions returns all depositions of a concept ordered by ascending
// version. Unknown concepts yield an empty list.
func (r *Registry) ListVersions(conceptID string) []Deposition {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.concepts[conceptID]
	out := make([]Deposition, 0, len(ids))
	for _, id := range ids {
		if dep, ok := r.depositions[id]; ok {
			out = append(out, *dep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
