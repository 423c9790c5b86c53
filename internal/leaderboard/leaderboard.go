// Package leaderboard ranks users by accumulated points and serves the
// ranking one page at a time.
//
// Several backend schema versions are supported without a migration step:
// the resolver tries a precomputed view first, then aggregates raw progress
// rows, then raw points rows, and the first source that answers wins.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/pkg/logger"
)

// Entry is one ranked user. Points and Total always hold the same value;
// both keys are kept for clients written against either schema.
type Entry struct {
	UserID string  `json:"user_id"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Points float64 `json:"points"`
	Total  float64 `json:"total"`
}

// Page is one slice of the ranking plus the pagination totals.
type Page struct {
	Entries  []Entry
	Page     int
	PageSize int
	Total    int
	Pages    int
	Source   string
}

// Strategy computes a page from one data source.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, p Params) (*Page, error)
}

// Tables names the relations each strategy reads.
type Tables struct {
	View     string
	Progress string
	Points   string
	Profiles string
}

func DefaultTables() Tables {
	return Tables{
		View:     "user_points_view",
		Progress: "progress",
		Points:   "points",
		Profiles: "profiles",
	}
}

type Resolver struct {
	strategies []Strategy
}

// New builds a resolver that tries strategies in the given order.
func New(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// NewResolver wires the view, progress and points strategies over s.
func NewResolver(s store.Store, t Tables) *Resolver {
	return New(
		NewViewStrategy(s, t.View),
		NewProgressStrategy(s, t.Progress, t.Profiles),
		NewPointsStrategy(s, t.Points, t.Profiles),
	)
}

// Resolve returns the requested page from the first strategy that succeeds.
// Failures of earlier strategies are logged and skipped; only the last
// strategy's failure reaches the caller.
func (r *Resolver) Resolve(ctx context.Context, p Params) (*Page, error) {
	p = p.Normalize()
	if len(r.strategies) == 0 {
		return nil, &errors.DatabaseError{Operation: "resolve leaderboard", Err: fmt.Errorf("no strategies configured")}
	}

	var lastErr error
	for i, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, s, p)
		if err == nil {
			page.Source = s.Name()
			return page, nil
		}
		lastErr = err

		if i < len(r.strategies)-1 {
			logger.WithFields(map[string]interface{}{
				"strategy": s.Name(),
				"next":     r.strategies[i+1].Name(),
				"page":     p.Page,
				"pageSize": p.PageSize,
			}).Warnf("leaderboard source unavailable, falling back: %v", err)
		}
	}

	if _, ok := lastErr.(*errors.DatabaseError); ok {
		return nil, lastErr
	}
	return nil, &errors.DatabaseError{Operation: "resolve leaderboard", Err: lastErr}
}

// fetch converts a panicking strategy into an error so the chain continues.
func fetch(ctx context.Context, s Strategy, p Params) (page *Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			page = nil
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()
	page, err = s.Fetch(ctx, p)
	if err == nil && page == nil {
		err = fmt.Errorf("strategy %s returned no page", s.Name())
	}
	return page, err
}
