// Package recommendation suggests datasets related to a given one. The
// ranking blends author overlap, tag overlap, download popularity and
// recency; it is intentionally cheap enough to run on every dataset page
// load.
package recommendation

import (
	"errors"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// ErrNotFound is returned when the anchor dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// Scoring weights. Author overlap dominates, then tags; downloads and
// recency only break near-ties.
const (
	authorWeight = 3.0
	tagWeight    = 2.0

	// recencyWindow is how long a dataset counts as recent. The recency
	// term decays linearly from 1 to 0 over this window.
	recencyWindow = 180 * 24 * time.Hour
)

// Scored is one recommended dataset with its composite score.
type Scored struct {
	DatasetID uint    `json:"dataset_id"`
	Title     string  `json:"title"`
	DOI       string  `json:"doi,omitempty"`
	Score     float64 `json:"score"`
}

// Service computes related-dataset recommendations.
type Service struct {
	datasets *dataset.Store
	now      func() time.Time
}

// NewService creates a recommendation Service over the dataset store.
func NewService(datasets *dataset.Store) *Service {
	return &Service{
		datasets: datasets,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Related returns up to limit datasets related to the given one, best first.
// Only datasets sharing at least one author or tag with the anchor qualify;
// an anchor with neither authors nor tags has no related datasets. The
// anchor itself is never included. Ties break toward the lower dataset id.
func (s *Service) Related(datasetID uint, limit int) ([]Scored, error) {
	if limit <= 0 {
		limit = 5
	}

	anchor, err := s.datasets.Get(datasetID)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		return nil, ErrNotFound
	}

	anchorAuthors := authorSet(&anchor.Metadata)
	anchorTags := tagSet(anchor.Metadata.Tags)
	if anchorAuthors.Cardinality() == 0 && anchorTags.Cardinality() == 0 {
		return []Scored{}, nil
	}

	candidates, err := s.datasets.List()
	if err != nil {
		return nil, err
	}
	downloads, err := s.datasets.CountDownloads()
	if err != nil {
		return nil, err
	}

	var maxDownloads int64
	for _, n := range downloads {
		if n > maxDownloads {
			maxDownloads = n
		}
	}

	now := s.now()

	scored := make([]Scored, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == anchor.ID {
			continue
		}

		authorOverlap := anchorAuthors.Intersect(authorSet(&c.Metadata)).Cardinality()
		tagOverlap := anchorTags.Intersect(tagSet(c.Metadata.Tags)).Cardinality()
		if authorOverlap == 0 && tagOverlap == 0 {
			continue
		}

		score := authorWeight*float64(authorOverlap) + tagWeight*float64(tagOverlap)
		if maxDownloads > 0 {
			score += float64(downloads[c.ID]) / float64(maxDownloads)
		}
		score += recencyScore(now, c.CreatedAt)

		scored = append(scored, Scored{
			DatasetID: c.ID,
			Title:     c.Metadata.Title,
			DOI:       c.Metadata.DatasetDOI,
			Score:     score,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DatasetID < scored[j].DatasetID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// recencyScore decays linearly from 1 for a brand new dataset to 0 at the
// window boundary and beyond.
func recencyScore(now, createdAt time.Time) float64 {
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	if age >= recencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(recencyWindow)
}

func authorSet(meta *dataset.DSMetaData) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, a := range meta.Authors {
		name := strings.ToLower(strings.TrimSpace(a.Name))
		if name != "" {
			set.Add(name)
		}
	}
	return set
}

func tagSet(tags string) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set.Add(tag)
		}
	}
	return set
}
