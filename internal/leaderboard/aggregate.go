package leaderboard

import (
	"context"
	"sort"

	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/pkg/logger"
)

// AggregateStrategy sums a raw point-event table per user and pages the
// result in memory. The whole table is read on every call.
type AggregateStrategy struct {
	store       store.Store
	table       string
	valueColumn string
	profiles    string
}

// NewProgressStrategy reads progress(user_id, points).
func NewProgressStrategy(s store.Store, table, profiles string) *AggregateStrategy {
	return &AggregateStrategy{store: s, table: table, valueColumn: "points", profiles: profiles}
}

// NewPointsStrategy reads points(user_id, value).
func NewPointsStrategy(s store.Store, table, profiles string) *AggregateStrategy {
	return &AggregateStrategy{store: s, table: table, valueColumn: "value", profiles: profiles}
}

func (a *AggregateStrategy) Name() string { return "aggregate:" + a.table }

func (a *AggregateStrategy) Fetch(ctx context.Context, p Params) (*Page, error) {
	res, err := a.store.Select(ctx, store.From(a.table).Select("user_id", a.valueColumn))
	if err != nil {
		return nil, err
	}

	ranked := Aggregate(res.Rows, a.valueColumn)
	total := len(ranked)

	start := p.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if total-start > p.PageSize {
		end = start + p.PageSize
	}
	entries := make([]Entry, end-start)
	copy(entries, ranked[start:end])

	a.attachProfiles(ctx, entries)

	return &Page{
		Entries:  entries,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		Pages:    pageCount(total, p.PageSize),
	}, nil
}

// Aggregate collapses point events into one ranked entry per user. Rows
// without a user id are skipped and non-finite values count as zero.
func Aggregate(rows []store.Row, valueColumn string) []Entry {
	totals := make(map[string]float64)
	for _, row := range rows {
		id := userID(row["user_id"])
		if id == "" {
			continue
		}
		v, _ := Finite(row[valueColumn])
		totals[id] += v
	}

	entries := make([]Entry, 0, len(totals))
	for id, t := range totals {
		entries = append(entries, Entry{UserID: id, Points: t, Total: t})
	}
	sortEntries(entries)
	return entries
}

// attachProfiles fills names for the given page only. A failed lookup
// leaves every name null.
func (a *AggregateStrategy) attachProfiles(ctx context.Context, entries []Entry) {
	if len(entries) == 0 || a.profiles == "" {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}

	q := store.From(a.profiles).
		Select("id", "display_name", "username", "name", "email").
		In("id", ids)
	res, err := a.store.Select(ctx, q)
	if err != nil {
		logger.Warn("Profile lookup on %s failed, names left empty: %v", a.profiles, err)
		return
	}

	byID := make(map[string]store.Row, len(res.Rows))
	for _, row := range res.Rows {
		if id := userID(row["id"]); id != "" {
			byID[id] = row
		}
	}
	for i := range entries {
		row, ok := byID[entries[i].UserID]
		if !ok {
			continue
		}
		entries[i].Name = DisplayName(row, nameColumns...)
		entries[i].Email = optionalString(row["email"])
	}
}

// sortEntries orders by total descending, then user id ascending.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].UserID < entries[j].UserID
	})
}
