package version

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uvlhub/datahub/pkg/dataset"
)

func TestBuildSnapshot(t *testing.T) {
	files := []dataset.HubFile{
		{ID: 1, Name: "a.uvl", Checksum: "c1", Size: 10},
		{ID: 2, Name: "b.uvl", Checksum: "c2", Size: 20},
	}

	snap := BuildSnapshot(files)
	assert.Len(t, snap, 2)
	assert.Equal(t, FileEntry{ID: 1, Checksum: "c1", Size: 10}, snap["a.uvl"])
	assert.Equal(t, FileEntry{ID: 2, Checksum: "c2", Size: 20}, snap["b.uvl"])
}

func TestBuildSnapshot_Idempotent(t *testing.T) {
	files := []dataset.HubFile{
		{ID: 1, Name: "a.uvl", Checksum: "c1", Size: 10},
		{ID: 2, Name: "b.uvl", Checksum: "c2", Size: 20},
	}

	assert.Equal(t, BuildSnapshot(files), BuildSnapshot(files))
}

func TestBuildSnapshot_DuplicateNameLastWins(t *testing.T) {
	files := []dataset.HubFile{
		{ID: 1, Name: "a.uvl", Checksum: "c1", Size: 10},
		{ID: 2, Name: "a.uvl", Checksum: "c2", Size: 20},
	}

	snap := BuildSnapshot(files)
	assert.Len(t, snap, 1)
	assert.Equal(t, FileEntry{ID: 2, Checksum: "c2", Size: 20}, snap["a.uvl"])
}

func TestBuildSnapshot_Empty(t *testing.T) {
	assert.Empty(t, BuildSnapshot(nil))
}
