// Package cache is the durable, day-indexed agenda store. Rows survive
// process restarts until a replace on an overlapping interval removes
// them; all writes for an interval happen in one SQLite transaction.
package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"lunacal/internal/agenda"
	"lunacal/internal/dates"
	"lunacal/internal/model"
)

// Record is the persisted form of an AgendaItem plus its day anchor.
type Record struct {
	ID          string `gorm:"primaryKey"`
	Kind        string `gorm:"not null"`
	SourceID    string `gorm:"not null"`
	SourceTitle string `gorm:"not null"`
	Title       string `gorm:"not null"`
	Start       *time.Time
	End         *time.Time
	AllDay      bool
	Completed   bool
	DayAnchor   time.Time `gorm:"index;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the database table name for Record.
func (Record) TableName() string { return "cached_agenda_items" }

// Store is the AgendaCache over a SQLite database.
type Store struct {
	db     *gorm.DB
	loc    *time.Location
	sorter *agenda.Reconciler
}

// Open opens (or creates) the cache database at path and migrates the
// schema. The parent directory is created if needed. tag drives the
// title collation of DayAgenda results.
func Open(path string, loc *time.Location, tag language.Tag) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}

	return &Store{db: db, loc: loc, sorter: agenda.NewReconciler(tag)}, nil
}

// Replace atomically swaps the cached contents of an interval: every
// record whose day anchor falls in [interval.Start, interval.End) is
// deleted and the supplied items are inserted in the same transaction.
// On failure nothing is applied and the prior state is preserved.
func (s *Store) Replace(ctx context.Context, items []model.AgendaItem, interval dates.Interval) error {
	now := time.Now()
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, Record{
			ID:          item.ID,
			Kind:        string(item.Kind),
			SourceID:    item.SourceID,
			SourceTitle: item.SourceTitle,
			Title:       item.Title,
			Start:       item.Start,
			End:         item.End,
			AllDay:      item.AllDay,
			Completed:   item.Completed,
			DayAnchor:   item.DayAnchor(s.loc),
			UpdatedAt:   now,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("day_anchor >= ? AND day_anchor < ?", interval.Start, interval.End).
			Delete(&Record{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		// An item anchored outside the interval can still share an ID
		// with a surviving row; upsert keeps the unique constraint.
		return tx.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
			Create(&records).Error
	})
}

// DayAgenda reads all items anchored on the day containing date,
// ordered by (sortDate, title) like the reconciled agenda. Read-only.
func (s *Store) DayAgenda(ctx context.Context, date time.Time) ([]model.AgendaItem, error) {
	anchor := dates.DayStart(date, s.loc)

	var records []Record
	if err := s.db.WithContext(ctx).
		Where("day_anchor = ?", anchor).
		Find(&records).Error; err != nil {
		return nil, err
	}

	items := make([]model.AgendaItem, 0, len(records))
	for _, rec := range records {
		kind := model.AgendaKind(rec.Kind)
		if kind != model.AgendaKindEvent && kind != model.AgendaKindReminder {
			continue
		}
		items = append(items, model.AgendaItem{
			ID:          rec.ID,
			Kind:        kind,
			SourceID:    rec.SourceID,
			SourceTitle: rec.SourceTitle,
			Title:       rec.Title,
			Start:       rec.Start,
			End:         rec.End,
			AllDay:      rec.AllDay,
			Completed:   rec.Completed,
		})
	}

	s.sorter.Sort(items)
	return items, nil
}
