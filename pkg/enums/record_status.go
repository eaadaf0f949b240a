package enums

import (
	"fmt"
	"strings"
)

// RecordStatus tracks whether a production record was posted to the ERP.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusConfirmed RecordStatus = "confirmed"
)

var validRecordStatuses = []RecordStatus{
	RecordStatusPending,
	RecordStatusConfirmed,
}

var recordStatusLabels = map[RecordStatus]string{
	RecordStatusPending:   "Pendente",
	RecordStatusConfirmed: "Ok - Lançada",
}

// String implements fmt.Stringer.
func (s RecordStatus) String() string {
	return string(s)
}

// Label returns the operator-facing label shown on reports.
func (s RecordStatus) Label() string {
	if label, ok := recordStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether the value is a known RecordStatus.
func (s RecordStatus) IsValid() bool {
	for _, candidate := range validRecordStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRecordStatus accepts either the canonical value or the report label.
func ParseRecordStatus(value string) (RecordStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validRecordStatuses {
		if string(candidate) == strings.ToLower(trimmed) || strings.EqualFold(candidate.Label(), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record status %q", value)
}
