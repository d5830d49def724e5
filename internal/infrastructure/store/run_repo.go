package store

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/vervegrand/feedsync/internal/domain"
)

// syncRun is the row layout of one finished sync run
type syncRun struct {
	RunID           string `gorm:"primaryKey;size:36"`
	Status          string `gorm:"size:16;index"`
	OptFull         bool
	OptPrice        bool
	OptInventory    bool
	OptDetails      bool
	OptImages       bool
	CreatedCount    int
	UpdatedCount    int
	SkippedCount    int
	ErrorCount      int
	DurationSeconds float64
	StartedAt       time.Time `gorm:"index"`
	FinishedAt      time.Time
	Error           string `gorm:"size:2048"`
}

func (syncRun) TableName() string {
	return "sync_runs"
}

func fromSummary(s *domain.SyncSummary) *syncRun {
	return &syncRun{
		RunID:           s.RunID,
		Status:          string(s.Status),
		OptFull:         s.Options.Full,
		OptPrice:        s.Options.Price,
		OptInventory:    s.Options.Inventory,
		OptDetails:      s.Options.Details,
		OptImages:       s.Options.Images,
		CreatedCount:    s.CreatedCount,
		UpdatedCount:    s.UpdatedCount,
		SkippedCount:    s.SkippedCount,
		ErrorCount:      s.ErrorCount,
		DurationSeconds: s.DurationSeconds,
		StartedAt:       s.StartedAt.UTC(),
		FinishedAt:      s.FinishedAt.UTC(),
		Error:           truncate(s.Error, 2048),
	}
}

func (r *syncRun) toSummary() domain.SyncSummary {
	return domain.SyncSummary{
		RunID:  r.RunID,
		Status: domain.RunStatus(r.Status),
		Options: domain.SyncOptions{
			Full:      r.OptFull,
			Price:     r.OptPrice,
			Inventory: r.OptInventory,
			Details:   r.OptDetails,
			Images:    r.OptImages,
		},
		CreatedCount:    r.CreatedCount,
		UpdatedCount:    r.UpdatedCount,
		SkippedCount:    r.SkippedCount,
		ErrorCount:      r.ErrorCount,
		DurationSeconds: r.DurationSeconds,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Error:           r.Error,
	}
}

// RunRepository stores sync summaries in a SQL database
type RunRepository struct {
	db *gorm.DB
}

var _ domain.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a run repository over a migrated database
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts the summary, replacing a stored run with the same id.
func (r *RunRepository) Save(ctx context.Context, summary *domain.SyncSummary) error {
	return r.db.WithContext(ctx).Save(fromSummary(summary)).Error
}

func (r *RunRepository) Latest(ctx context.Context) (*domain.SyncSummary, error) {
	var row syncRun
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summary := row.toSummary()
	return &summary, nil
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]domain.SyncSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []syncRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]domain.SyncSummary, len(rows))
	for i := range rows {
		summaries[i] = rows[i].toSummary()
	}
	return summaries, nil
}

// truncate cuts s to at most n bytes on a rune boundary
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
