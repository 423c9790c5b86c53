// Package progress records module completions, which is how users earn
// leaderboard points.
package progress

import (
	"context"
	"time"

	"github.com/estudorank/estudorank/internal/catalog"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/pkg/logger"
)

// Notifier is told whenever a completion changes the ranking.
type Notifier interface {
	LeaderboardChanged(ctx context.Context)
}

// ModuleFinder resolves the module being completed.
type ModuleFinder interface {
	GetModule(ctx context.Context, id string) (*catalog.Module, error)
}

type Record struct {
	UserID      string    `json:"user_id"`
	ModuleID    string    `json:"module_id"`
	Points      float64   `json:"points"`
	CompletedAt time.Time `json:"completed_at"`
}

type Completion struct {
	Record           Record `json:"record"`
	AlreadyCompleted bool   `json:"already_completed"`
}

type Summary struct {
	UserID    string   `json:"user_id"`
	Completed []Record `json:"completed"`
	Total     float64  `json:"total"`
}

type Service struct {
	store    store.Store
	table    string
	modules  ModuleFinder
	notifier Notifier
	now      func() time.Time
}

// NewService writes completions to table. notifier may be nil.
func NewService(s store.Store, table string, modules ModuleFinder, notifier Notifier) *Service {
	return &Service{
		store:    s,
		table:    table,
		modules:  modules,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func recordFromRow(r store.Row) Record {
	points, _ := leaderboard.Finite(r["points"])
	return Record{
		UserID:      r.String("user_id"),
		ModuleID:    r.String("module_id"),
		Points:      points,
		CompletedAt: r.Time("completed_at"),
	}
}

func (s *Service) find(ctx context.Context, userID, moduleID string) (*Record, error) {
	res, err := s.store.Select(ctx, store.From(s.table).
		Eq("user_id", userID).
		Eq("module_id", moduleID).
		WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	rec := recordFromRow(res.Rows[0])
	return &rec, nil
}

// CompleteModule credits userID with the module's points once. Repeated
// calls return the original record with AlreadyCompleted set.
func (s *Service) CompleteModule(ctx context.Context, userID, moduleID string) (*Completion, error) {
	module, err := s.modules.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Completion{Record: *existing, AlreadyCompleted: true}, nil
	}

	row := store.Row{
		"user_id":      userID,
		"module_id":    module.ID,
		"points":       module.Points,
		"completed_at": s.now(),
	}
	if _, err := s.store.Insert(ctx, s.table, row); err != nil {
		// A concurrent request may have won the unique (user_id, module_id) race.
		if existing, findErr := s.find(ctx, userID, moduleID); findErr == nil && existing != nil {
			return &Completion{Record: *existing, AlreadyCompleted: true}, nil
		}
		return nil, err
	}

	logger.Info("User %s completed module %s for %.2f points", userID, module.ID, module.Points)
	if s.notifier != nil {
		s.notifier.LeaderboardChanged(ctx)
	}
	return &Completion{Record: recordFromRow(row)}, nil
}

// Summary lists a user's completions, newest first, with their point total.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	res, err := s.store.Select(ctx, store.From(s.table).
		Eq("user_id", userID).
		Order("completed_at", true))
	if err != nil {
		return nil, err
	}

	summary := &Summary{UserID: userID, Completed: make([]Record, 0, len(res.Rows))}
	for _, r := range res.Rows {
		rec := recordFromRow(r)
		summary.Completed = append(summary.Completed, rec)
		summary.Total += rec.Points
	}
	return summary, nil
}
