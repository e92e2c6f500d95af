package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a float64 that decodes from either a JSON number or a numeric
// string. Upstream course data is inconsistent about which one it emits.
type Number float64

// UnmarshalJSON accepts 4.6, "4.6", null, and "" (the latter two as zero).
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(CoerceFloat(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns the value as a plain float64.
func (n Number) Float() float64 { return float64(n) }

// CoerceFloat converts a string-or-number metadata value to float64.
// Unparseable values coerce to zero rather than erroring: they originate from
// uncontrolled upstream data and must never fail a render.
func CoerceFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case Number:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
