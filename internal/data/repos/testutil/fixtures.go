package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
)

func Float(v float64) *float64 { return &v }

func Bool(v bool) *bool { return &v }

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, itemType, label string) *types.AssessmentItem {
	tb.Helper()
	now := time.Now().UTC()
	it := &types.AssessmentItem{
		ID:                   uuid.New(),
		CourseID:             courseID,
		ItemType:             itemType,
		DifficultyLabel:      label,
		EstimatedTimeSeconds: 60,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed assessment item: %v", err)
	}
	return it
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, item *types.AssessmentItem, correct bool, ratio *float64) *types.Attempt {
	tb.Helper()
	courseID := item.CourseID
	att := &types.Attempt{
		ID:           uuid.New(),
		UserID:       userID,
		ItemID:       item.ID,
		CourseID:     &courseID,
		IsCorrect:    Bool(correct),
		SuccessRatio: ratio,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(att).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return att
}

func SeedItemParams(tb testing.TB, ctx context.Context, tx *gorm.DB, itemID uuid.UUID, difficulty float64, latest bool, updatedAt time.Time) *types.ItemParams {
	tb.Helper()
	row := &types.ItemParams{
		ID:             uuid.New(),
		ItemID:         itemID,
		Difficulty:     difficulty,
		Discrimination: 1,
		Guessing:       0.2,
		Version:        updatedAt.Format(time.RFC3339Nano),
		Source:         "test",
		IsLatest:       latest,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed item params: %v", err)
	}
	return row
}
