package version

import "github.com/uvlhub/datahub/pkg/dataset"

// BuildSnapshot maps a dataset's current files to an immutable snapshot.
// Pure transformation, no side effects. If two files share a name the last
// one wins; duplicate names are not expected and not rejected.
func BuildSnapshot(files []dataset.HubFile) FilesSnapshot {
	snapshot := make(FilesSnapshot, len(files))
	for _, f := range files {
		snapshot[f.Name] = FileEntry{
			ID:       f.ID,
			Checksum: f.Checksum,
			Size:     f.Size,
		}
	}
	return snapshot
}
