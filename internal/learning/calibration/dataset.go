package calibration

import (
	"sort"

	"github.com/google/uuid"
)

// RawAttempt is one historical attempt as loaded from the attempt store.
type RawAttempt struct {
	UserID       uuid.UUID
	ItemID       uuid.UUID
	IsCorrect    bool
	SuccessRatio *float64
	Skipped      bool
}

// Response is a filtered attempt that takes part in training.
type Response struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	Correct  bool
	Accuracy float64
}

// ItemMeta is the catalogue information calibration needs per item.
type ItemMeta struct {
	ItemType               string
	BaselineDiscrimination *float64
}

// Dataset indexes the training responses by user and by item. Key slices are
// sorted so every run visits users and items in the same order.
type Dataset struct {
	ByUser map[uuid.UUID][]Response
	ByItem map[uuid.UUID][]Response
	Users  []uuid.UUID
	Items  []uuid.UUID
	Size   int
}

type FilterStats struct {
	Loaded          int
	MissingSignal   int
	Skipped         int
	DroppedItems    int
	DroppedAttempts int
}

// Filter drops attempts without a success signal or marked skipped, then drops
// items with fewer than minAttempts surviving attempts.
func Filter(raw []RawAttempt, minAttempts int) (*Dataset, FilterStats) {
	stats := FilterStats{Loaded: len(raw)}
	counts := map[uuid.UUID]int{}
	kept := make([]Response, 0, len(raw))
	for _, a := range raw {
		if a.Skipped {
			stats.Skipped++
			continue
		}
		if a.SuccessRatio == nil {
			stats.MissingSignal++
			continue
		}
		counts[a.ItemID]++
		kept = append(kept, Response{
			UserID:   a.UserID,
			ItemID:   a.ItemID,
			Correct:  a.IsCorrect,
			Accuracy: *a.SuccessRatio,
		})
	}

	ds := &Dataset{
		ByUser: map[uuid.UUID][]Response{},
		ByItem: map[uuid.UUID][]Response{},
	}
	for id, n := range counts {
		if n < minAttempts {
			stats.DroppedItems++
			stats.DroppedAttempts += n
			delete(counts, id)
		}
	}
	for _, r := range kept {
		if _, ok := counts[r.ItemID]; !ok {
			continue
		}
		ds.ByUser[r.UserID] = append(ds.ByUser[r.UserID], r)
		ds.ByItem[r.ItemID] = append(ds.ByItem[r.ItemID], r)
		ds.Size++
	}
	ds.Users = sortedKeys(ds.ByUser)
	ds.Items = sortedKeys(ds.ByItem)
	return ds, stats
}

func (d *Dataset) Empty() bool {
	return d == nil || d.Size == 0 || len(d.Users) == 0 || len(d.Items) == 0
}

func sortedKeys(m map[uuid.UUID][]Response) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
