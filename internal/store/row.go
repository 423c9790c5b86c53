package store

import (
	"strconv"
	"time"
)

// String returns the column as a string, or "" when absent or not text.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// StringPtr is String with NULL kept as nil.
func (r Row) StringPtr(column string) *string {
	switch v := r[column].(type) {
	case string:
		return &v
	case []byte:
		s := string(v)
		return &s
	}
	return nil
}

func (r Row) Int(column string) int {
	switch v := r[column].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Float reads numeric columns. NUMERIC text is parsed; anything else is 0.
func (r Row) Float(column string) float64 {
	switch v := r[column].(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Time reads timestamp columns, accepting RFC 3339 text as well.
func (r Row) Time(column string) time.Time {
	switch v := r[column].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	}
	return time.Time{}
}
