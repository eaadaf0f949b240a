package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCode normalises a product code cell. Integral decimals such as "12345.0"
// are accepted; anything else yields 0, which never matches a scan.
func ParseCode(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("empty product code")
	}
	if code, err := strconv.ParseInt(value, 10, 64); err == nil {
		if code <= 0 {
			return 0, fmt.Errorf("product code %q must be positive", raw)
		}
		return code, nil
	}

	d, err := decimal.NewFromString(strings.Replace(value, ",", ".", 1))
	if err != nil {
		return 0, fmt.Errorf("product code %q is not numeric", raw)
	}
	if !d.Equal(d.Truncate(0)) || !d.IsPositive() {
		return 0, fmt.Errorf("product code %q is not a positive integer", raw)
	}
	return d.IntPart(), nil
}

// ParseFactor normalises a mass factor written in any of the formats found in
// ERP exports: "7.85", "7,85", "1.234,56", "1,234.56", "1.234.567".
// Unparseable or negative input returns an error and a zero factor.
func ParseFactor(raw string) (float64, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("mass factor: %w", err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("mass factor %q is negative", raw)
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseDecimal reads a number typed with either separator convention. When
// both separators appear the last one is the decimal mark; a separator
// repeated on its own is a thousands mark.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "\u00a0", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(normalizeSeparators(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not numeric", raw)
	}
	return d, nil
}

func normalizeSeparators(value string) string {
	lastDot := strings.LastIndex(value, ".")
	lastComma := strings.LastIndex(value, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			value = strings.ReplaceAll(value, ".", "")
			return strings.Replace(value, ",", ".", 1)
		}
		return strings.ReplaceAll(value, ",", "")
	case lastComma >= 0:
		if strings.Count(value, ",") > 1 {
			return strings.ReplaceAll(value, ",", "")
		}
		return strings.Replace(value, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(value, ".") > 1 {
			return strings.ReplaceAll(value, ".", "")
		}
		return value
	default:
		return value
	}
}

// ParseScan extracts the product code from scanner payloads. Some labels encode
// a prefix ("SAP:12345"), so only the text after the last colon is used.
func ParseScan(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if i := strings.LastIndex(value, ":"); i >= 0 {
		value = strings.TrimSpace(value[i+1:])
	}
	return ParseCode(value)
}

func trimCell(v string) string {
	return strings.TrimSpace(v)
}
