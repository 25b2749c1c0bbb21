package parser

import (
	"strconv"
	"strings"
	"time"
)

// Per-type cleaners. Each one distinguishes "not provided" from "invalid":
// an empty raw value is an explicit absence, never an error, and an explicit
// boolean false survives as false instead of collapsing into absence.

// cleanBoolean parses an XML boolean attribute. ok reports whether a value
// was provided at all; err is non-nil only for a provided, unparseable value.
func cleanBoolean(raw string) (value bool, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false, nil
	}
	switch raw {
	case "1", "true":
		return true, true, nil
	case "0", "false":
		return false, true, nil
	}
	return false, false, &cleanError{kind: "boolean", raw: raw}
}

// cleanEnum normalizes a coded value, keeping empty as explicit absence.
func cleanEnum(raw string) string {
	return strings.TrimSpace(raw)
}

// cleanIdentifier normalizes an external identifier.
func cleanIdentifier(raw string) string {
	return strings.TrimSpace(raw)
}

// cleanDate parses an ISO-8601 date, tolerating a trailing time component.
func cleanDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	candidate := raw
	if len(candidate) > 10 {
		candidate = candidate[:10]
	}
	t, err := time.Parse("2006-01-02", candidate)
	if err != nil {
		return nil, &cleanError{kind: "date", raw: raw}
	}
	t = t.UTC()
	return &t, nil
}

// cleanDecimal parses a monetary value, tolerating thousands separators.
func cleanDecimal(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	normalized := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false, &cleanError{kind: "decimal", raw: raw}
	}
	return v, true, nil
}

// cleanCurrency normalizes a currency code to upper case.
func cleanCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

type cleanError struct {
	kind string
	raw  string
}

func (e *cleanError) Error() string {
	return "parser: invalid " + e.kind + " value " + strconv.Quote(e.raw)
}
