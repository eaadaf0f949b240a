package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "production_records_pkey"`), "", true},
		{"sqlite", errors.New("UNIQUE constraint failed: production_records.id"), "", true},
		{"named match", errors.New(`duplicate key value violates unique constraint "lot_counters_pkey"`), "lot_counters_pkey", true},
		{"named miss", errors.New(`duplicate key value violates unique constraint "other"`), "lot_counters_pkey", false},
		{"unrelated", errors.New("connection refused"), "", false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
