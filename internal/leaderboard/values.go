package leaderboard

import (
	"fmt"
	"math"

	"github.com/estudorank/estudorank/internal/store"
)

// Finite returns v as a float64 when it is a number other than NaN or
// ±Inf. Anything else (nil, strings, bools) is not finite.
func Finite(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DisplayName picks the first non-empty string among keys.
func DisplayName(row store.Row, keys ...string) *string {
	for _, k := range keys {
		if s, ok := row[k].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

func optionalString(v interface{}) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

// userID renders an identifier column; "" means missing.
func userID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case []byte:
		return string(id)
	case fmt.Stringer:
		return id.String()
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(id)
	default:
		return ""
	}
}
