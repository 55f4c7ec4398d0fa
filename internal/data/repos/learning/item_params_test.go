package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-adaptive/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
)

func upsertBkt(repo BktParamsRepo, dbc dbctx.Context, courseID uuid.UUID, guess float64) error {
	return repo.Upsert(dbc, &types.CourseBktParams{
		CourseID:            courseID,
		GuessingProbability: guess,
		SlippingProbability: 0.1,
		LearningRate:        0.3,
	})
}

func TestItemParamsRepoFlagThenRecency(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewItemParamsRepo(db, testutil.Logger(t))

	itemID := uuid.New()
	if got, err := repo.GetLatestFlagged(dbc, itemID); err != nil || got != nil {
		t.Fatalf("GetLatestFlagged(missing): got=%v err=%v", got, err)
	}

	old := time.Now().Add(-2 * time.Hour).UTC()
	recent := time.Now().Add(-1 * time.Minute).UTC()
	flagged := testutil.SeedItemParams(t, ctx, tx, itemID, 1.5, true, old)
	newer := testutil.SeedItemParams(t, ctx, tx, itemID, -0.5, false, recent)

	got, err := repo.GetLatestFlagged(dbc, itemID)
	if err != nil || got == nil || got.ID != flagged.ID {
		t.Fatalf("GetLatestFlagged: got=%+v err=%v", got, err)
	}
	got, err = repo.GetMostRecent(dbc, itemID)
	if err != nil || got == nil || got.ID != newer.ID {
		t.Fatalf("GetMostRecent: got=%+v err=%v", got, err)
	}
}

func TestItemParamsRepoUpsertBatchMovesLatestFlag(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewItemParamsRepo(db, testutil.Logger(t))

	a, b := uuid.New(), uuid.New()
	first := []*types.ItemParams{
		{ItemID: a, Difficulty: 0.1, Discrimination: 1, Guessing: 0.25, Version: "v1", Source: types.SourceOfflineScript},
		{ItemID: b, Difficulty: 0.2, Discrimination: 1, Guessing: 0.25, Version: "v1", Source: types.SourceOfflineScript},
		{ItemID: uuid.Nil, Version: "v1"},
	}
	if err := repo.UpsertBatch(dbc, first); err != nil {
		t.Fatalf("UpsertBatch(v1): %v", err)
	}
	second := []*types.ItemParams{
		{ItemID: a, Difficulty: 0.9, Discrimination: 1.4, Guessing: 0.25, Version: "v2", Source: types.SourceScheduled},
		{ItemID: a, Difficulty: 1.1, Discrimination: 1.4, Guessing: 0.25, Version: "v2", Source: types.SourceScheduled},
	}
	if err := repo.UpsertBatch(dbc, second); err != nil {
		t.Fatalf("UpsertBatch(v2): %v", err)
	}

	got, err := repo.GetLatestFlagged(dbc, a)
	if err != nil || got == nil || got.Version != "v2" || got.Difficulty != 1.1 {
		t.Fatalf("GetLatestFlagged(a): got=%+v err=%v", got, err)
	}
	all, err := repo.ListByItemIDs(dbc, []uuid.UUID{a, a, b})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListByItemIDs: got=%d err=%v", len(all), err)
	}
	latest := 0
	for _, row := range all {
		if row.ItemID == a && row.IsLatest {
			latest++
		}
	}
	if latest != 1 {
		t.Fatalf("want exactly one latest row for item a, got %d", latest)
	}
	if got, _ := repo.GetLatestFlagged(dbc, b); got == nil || got.Version != "v1" {
		t.Fatalf("GetLatestFlagged(b): got=%+v", got)
	}

	// Re-running a version overwrites it in place.
	if err := repo.UpsertBatch(dbc, []*types.ItemParams{{ItemID: b, Difficulty: -2, Discrimination: 1, Version: "v1"}}); err != nil {
		t.Fatalf("UpsertBatch(rerun): %v", err)
	}
	if got, _ := repo.GetLatestFlagged(dbc, b); got == nil || got.Difficulty != -2 {
		t.Fatalf("GetLatestFlagged(b rerun): got=%+v", got)
	}
}
