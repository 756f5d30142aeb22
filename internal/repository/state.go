package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stateModel keeps one JSON document per engine component between passes.
type stateModel struct {
	Name      string          `gorm:"primaryKey"`
	Data      json.RawMessage `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (stateModel) TableName() string {
	return "engine_states"
}

// SaveState stores v as JSON under name, replacing any previous document.
func (s *Store) SaveState(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s state: %w", name, err)
	}
	record := stateModel{Name: name, Data: raw, UpdatedAt: s.now()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save %s state: %w", name, err)
	}
	return nil
}

// LoadState decodes the document stored under name into v. It reports false
// when nothing has been saved yet.
func (s *Store) LoadState(ctx context.Context, name string, v any) (bool, error) {
	var record stateModel
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s state: %w", name, err)
	}
	if len(record.Data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(record.Data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s state: %w", name, err)
	}
	return true, nil
}
