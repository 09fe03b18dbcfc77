package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NumberToUint64 parses a JSON number that peers may send either bare or quoted. Fractions and
// negative values are refused.
func NumberToUint64(num json.Number) (uint64, error) {
	raw := strings.TrimSpace(string(num))
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n, nil
	} else {
		return 0, fmt.Errorf("unexpected non integer value: %q", raw)
	}
}
