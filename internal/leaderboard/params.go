package leaderboard

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100
	// MaxPage keeps Offset within int range for any page size.
	MaxPage = math.MaxInt32
)

// Params selects one page of the leaderboard. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
}

// ParseParams reads the string-encoded query parameters. Absent or
// unparseable values take the defaults; a page size that is not positive
// also falls back to the default rather than to the minimum.
func ParseParams(page, pageSize string) Params {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}
	if n, ok := parseNumber(page); ok {
		p.Page = n
	}
	if n, ok := parseNumber(pageSize); ok && n > 0 {
		p.PageSize = n
	}
	return p.Normalize()
}

func parseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > MaxPage {
		f = MaxPage
	}
	if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), true
}

// Normalize clamps page to [1, MaxPage] and pageSize to [1, MaxPageSize].
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of ranked users before the page. It saturates at
// math.MaxInt instead of wrapping.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// pageCount is ceil(total/pageSize) with a floor of 1.
func pageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
