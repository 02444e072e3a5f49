// Package trending ranks published datasets by recent view and download
// activity. Rankings only consider datasets that hold a DOI; drafts never
// trend. Results are cached briefly since the underlying aggregation scans
// the full event tables.
package trending

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/uvlhub/datahub/pkg/dataset"
)

// Metric selects the ranking formula.
type Metric string

const (
	MetricViews     Metric = "views"
	MetricDownloads Metric = "downloads"
	// MetricScore weighs downloads double: 2*downloads + views over the
	// period.
	MetricScore Metric = "score"
	// MetricScoreV2 additionally boosts last-day activity:
	// 3*downloads_day + 2*downloads_period + views_day + 0.5*views_period.
	MetricScoreV2 Metric = "score_v2"
)

// Period is the trailing window the activity is counted over.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var (
	ErrUnknownMetric = errors.New("unknown trending metric")
	ErrUnknownPeriod = errors.New("unknown trending period")
)

// ParseMetric validates a metric name, defaulting the empty string to score.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "":
		return MetricScore, nil
	case MetricViews, MetricDownloads, MetricScore, MetricScoreV2:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// ParsePeriod validates a period name, defaulting the empty string to week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// days returns the window length of a period.
func (p Period) days() int {
	switch p {
	case PeriodDay:
		return 1
	case PeriodMonth:
		return 30
	default:
		return 7
	}
}

// Entry is one ranked dataset.
type Entry struct {
	DatasetID uint    `json:"dataset_id"`
	Title     string  `json:"title"`
	DOI       string  `json:"doi"`
	Views     int64   `json:"views"`
	Downloads int64   `json:"downloads"`
	Score     float64 `json:"score"`
}

const (
	cacheSize = 128
	cacheTTL  = 60 * time.Second
)

// Service computes trending rankings with a short-lived result cache.
type Service struct {
	db    *gorm.DB
	cache *expirable.LRU[string, []Entry]
	now   func() time.Time
}

// NewService creates a trending Service over the shared database.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		cache: expirable.NewLRU[string, []Entry](cacheSize, nil, cacheTTL),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Top returns up to limit datasets ranked by the metric over the period.
// Ties break toward the lower dataset id so rankings are stable.
func (s *Service) Top(metric Metric, period Period, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("%s|%s|%d", metric, period, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	entries, err := s.compute(metric, period)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	s.cache.Add(key, entries)
	return entries, nil
}

// candidate is one DOI-holding dataset eligible for ranking.
type candidate struct {
	ID    uint
	Title string
	DOI   string
}

func (s *Service) compute(metric Metric, period Period) ([]Entry, error) {
	var candidates []candidate
	err := s.db.Table("datasets").
		Select("datasets.id AS id, ds_meta_data.title AS title, ds_meta_data.dataset_doi AS doi").
		Joins("JOIN ds_meta_data ON ds_meta_data.dataset_id = datasets.id").
		Where("ds_meta_data.dataset_doi <> ''").
		Scan(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("load ranked datasets: %w", err)
	}
	if len(candidates) == 0 {
		return []Entry{}, nil
	}

	now := s.now()
	periodStart := now.AddDate(0, 0, -period.days())
	dayStart := now.AddDate(0, 0, -1)

	viewsPeriod, err := s.countSince(&dataset.DSViewRecord{}, "view_date", periodStart)
	if err != nil {
		return nil, err
	}
	downloadsPeriod, err := s.countSince(&dataset.DSDownloadRecord{}, "download_date", periodStart)
	if err != nil {
		return nil, err
	}

	var viewsDay, downloadsDay map[uint]int64
	if metric == MetricScoreV2 {
		if viewsDay, err = s.countSince(&dataset.DSViewRecord{}, "view_date", dayStart); err != nil {
			return nil, err
		}
		if downloadsDay, err = s.countSince(&dataset.DSDownloadRecord{}, "download_date", dayStart); err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		e := Entry{
			DatasetID: c.ID,
			Title:     c.Title,
			DOI:       c.DOI,
			Views:     viewsPeriod[c.ID],
			Downloads: downloadsPeriod[c.ID],
		}
		switch metric {
		case MetricViews:
			e.Score = float64(e.Views)
		case MetricDownloads:
			e.Score = float64(e.Downloads)
		case MetricScoreV2:
			e.Score = 3*float64(downloadsDay[c.ID]) + 2*float64(e.Downloads) +
				float64(viewsDay[c.ID]) + 0.5*float64(e.Views)
		default:
			e.Score = 2*float64(e.Downloads) + float64(e.Views)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DatasetID < entries[j].DatasetID
	})
	return entries, nil
}

// countSince aggregates event counts per dataset for events at or after
// the cutoff.
func (s *Service) countSince(model any, dateColumn string, since time.Time) (map[uint]int64, error) {
	var rows []struct {
		DatasetID uint
		Count     int64
	}
	err := s.db.Model(model).
		Select("dataset_id, COUNT(*) AS count").
		Where(dateColumn+" >= ?", since).
		Group("dataset_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", dateColumn, err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.DatasetID] = row.Count
	}
	return counts, nil
}
