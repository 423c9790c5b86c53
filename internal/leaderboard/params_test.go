package leaderboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseParams(t *testing.T) {
	testCases := []struct {
		name     string
		page     string
		pageSize string
		expected Params
	}{
		{"Defaults", "", "", Params{Page: 1, PageSize: 25}},
		{"Explicit values", "3", "10", Params{Page: 3, PageSize: 10}},
		{"Page size above maximum", "1", "500", Params{Page: 1, PageSize: 100}},
		{"Zero page size falls back to default", "1", "0", Params{Page: 1, PageSize: 25}},
		{"Negative page size falls back to default", "1", "-4", Params{Page: 1, PageSize: 25}},
		{"Zero page", "0", "", Params{Page: 1, PageSize: 25}},
		{"Negative page", "-7", "", Params{Page: 1, PageSize: 25}},
		{"Garbage", "abc", "NaN", Params{Page: 1, PageSize: 25}},
		{"Fractional values truncate", "2.9", "10.5", Params{Page: 2, PageSize: 10}},
		{"Whitespace", " 2 ", " 5", Params{Page: 2, PageSize: 5}},
		{"Huge integer page", "4611686018427387905", "4", Params{Page: MaxPage, PageSize: 4}},
		{"Huge fractional page", "1e30", "4", Params{Page: MaxPage, PageSize: 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseParams(tc.page, tc.pageSize))
		})
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(0, 25))
	assert.Equal(t, 1, pageCount(25, 25))
	assert.Equal(t, 2, pageCount(26, 25))
	assert.Equal(t, 100, pageCount(100, 1))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, PageSize: 25}.Offset())
	assert.Equal(t, 50, Params{Page: 3, PageSize: 25}.Offset())
	assert.Equal(t, (MaxPage-1)*MaxPageSize, Params{Page: MaxPage, PageSize: MaxPageSize}.Offset())
	assert.Equal(t, math.MaxInt, Params{Page: math.MaxInt, PageSize: 4}.Offset())
	assert.Equal(t, 0, Params{Page: 0, PageSize: 4}.Offset())
}

func TestNormalizeClampsPage(t *testing.T) {
	assert.Equal(t, Params{Page: MaxPage, PageSize: 4}, Params{Page: math.MaxInt, PageSize: 4}.Normalize())
}
