package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type ItemParamsRepo interface {
	// GetLatestFlagged returns the row marked is_latest, or nil.
	GetLatestFlagged(dbc dbctx.Context, itemID uuid.UUID) (*types.ItemParams, error)
	// GetMostRecent returns the most recently updated row regardless of flag, or nil.
	GetMostRecent(dbc dbctx.Context, itemID uuid.UUID) (*types.ItemParams, error)
	ListByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.ItemParams, error)
	// UpsertBatch writes one row per (item, version), flags it latest and
	// clears the flag on the item's other versions. Call it inside a transaction.
	UpsertBatch(dbc dbctx.Context, rows []*types.ItemParams) error
}

type itemParamsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemParamsRepo(db *gorm.DB, baseLog *logger.Logger) ItemParamsRepo {
	return &itemParamsRepo{db: db, log: baseLog.With("repo", "ItemParamsRepo")}
}

func (r *itemParamsRepo) GetLatestFlagged(dbc dbctx.Context, itemID uuid.UUID) (*types.ItemParams, error) {
	return firstItemParams(r.query(dbc, itemID).Where("is_latest = ?", true))
}

func (r *itemParamsRepo) GetMostRecent(dbc dbctx.Context, itemID uuid.UUID) (*types.ItemParams, error) {
	return firstItemParams(r.query(dbc, itemID))
}

func (r *itemParamsRepo) query(dbc dbctx.Context, itemID uuid.UUID) *gorm.DB {
	return dbc.Handle(r.db).
		Where("item_id = ?", itemID).
		Order("updated_at DESC")
}

func firstItemParams(q *gorm.DB) (*types.ItemParams, error) {
	var row types.ItemParams
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *itemParamsRepo) ListByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.ItemParams, error) {
	out := []*types.ItemParams{}
	clean := dedupeIDs(itemIDs)
	if len(clean) == 0 {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("item_id IN ?", clean).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemParamsRepo) UpsertBatch(dbc dbctx.Context, rows []*types.ItemParams) error {
	type key struct {
		item    uuid.UUID
		version string
	}
	clean := make([]*types.ItemParams, 0, len(rows))
	pos := map[key]int{}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil || row.ItemID == uuid.Nil {
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		row.IsLatest = true
		// A single INSERT may not touch the same conflict key twice; last write wins.
		k := key{row.ItemID, row.Version}
		if i, ok := pos[k]; ok {
			clean[i] = row
			continue
		}
		pos[k] = len(clean)
		clean = append(clean, row)
	}
	if len(clean) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(clean))
	for _, row := range clean {
		ids = append(ids, row.ItemID)
	}
	if err := dbc.Handle(r.db).
		Model(&types.ItemParams{}).
		Where("item_id IN ?", dedupeIDs(ids)).
		Where("is_latest = ?", true).
		Update("is_latest", false).Error; err != nil {
		return err
	}
	return dbc.Handle(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "item_id"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"difficulty",
				"discrimination",
				"guessing",
				"source",
				"is_latest",
				"updated_at",
			}),
		}).
		CreateInBatches(clean, 200).Error
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
