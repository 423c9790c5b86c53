package leaderboard

import (
	"context"
	"math"

	"github.com/estudorank/estudorank/internal/store"
)

var nameColumns = []string{"display_name", "username", "name", "email"}

// ViewStrategy pages a precomputed per-user totals view at the source.
type ViewStrategy struct {
	store store.Store
	view  string
}

func NewViewStrategy(s store.Store, view string) *ViewStrategy {
	return &ViewStrategy{store: s, view: view}
}

func (v *ViewStrategy) Name() string { return "view:" + v.view }

// Fetch selects every column so a view missing some identity fields still
// answers. Any successful result, even an empty one, is authoritative.
func (v *ViewStrategy) Fetch(ctx context.Context, p Params) (*Page, error) {
	from := p.Offset()
	to := math.MaxInt
	if from <= math.MaxInt-p.PageSize {
		to = from + p.PageSize - 1
	}
	q := store.From(v.view).
		Order("total", true).
		Order("user_id", false).
		Range(from, to).
		WithCount()

	res, err := v.store.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(res.Rows))
	for _, row := range res.Rows {
		id := userID(row["user_id"])
		if id == "" {
			continue
		}
		value, ok := Finite(row["total"])
		if !ok {
			value, _ = Finite(row["points"])
		}
		entries = append(entries, Entry{
			UserID: id,
			Name:   DisplayName(row, nameColumns...),
			Email:  optionalString(row["email"]),
			Points: value,
			Total:  value,
		})
	}
	// Rows whose total is not a number rank by points here, so the source
	// order is not final.
	sortEntries(entries)

	total := len(entries)
	if res.Count != nil {
		total = int(*res.Count)
	}
	return &Page{
		Entries:  entries,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		Pages:    pageCount(total, p.PageSize),
	}, nil
}
