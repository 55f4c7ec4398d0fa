package irt

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

const SourceHeuristic = "heuristic"

// Source is one step of the item-parameter lookup chain. A miss is (nil, nil).
type Source interface {
	Name() string
	Lookup(ctx context.Context, itemID uuid.UUID) (*ItemParams, error)
}

type sourceFunc struct {
	name string
	fn   func(ctx context.Context, itemID uuid.UUID) (*ItemParams, error)
}

func (s sourceFunc) Name() string { return s.name }

func (s sourceFunc) Lookup(ctx context.Context, itemID uuid.UUID) (*ItemParams, error) {
	return s.fn(ctx, itemID)
}

// SourceFunc adapts a lookup function into a named Source.
func SourceFunc(name string, fn func(ctx context.Context, itemID uuid.UUID) (*ItemParams, error)) Source {
	return sourceFunc{name: name, fn: fn}
}

type Resolution struct {
	Params ItemParams
	Source string
}

// Resolver walks an ordered list of sources and falls back to the heuristic.
type Resolver struct {
	log *logger.Logger
}

func NewResolver(baseLog *logger.Logger) *Resolver {
	return &Resolver{log: baseLog.With("component", "ItemParamResolver")}
}

// Resolve never fails: lookup errors are logged and the next source is tried.
func (r *Resolver) Resolve(ctx context.Context, itemID uuid.UUID, in ItemContext, sources ...Source) Resolution {
	for _, src := range sources {
		if src == nil {
			continue
		}
		p, err := src.Lookup(ctx, itemID)
		if err != nil {
			r.log.Warn("item param lookup failed; trying next source", "source", src.Name(), "item_id", itemID, "error", err)
			continue
		}
		if p != nil {
			return Resolution{Params: *p, Source: src.Name()}
		}
	}
	return Resolution{Params: Heuristic(in), Source: SourceHeuristic}
}
