package enums

import "testing"

func TestParseRecordStatus(t *testing.T) {
	cases := map[string]RecordStatus{
		"pending":      RecordStatusPending,
		" Confirmed ":  RecordStatusConfirmed,
		"Pendente":     RecordStatusPending,
		"ok - lançada": RecordStatusConfirmed,
		"Ok - Lançada": RecordStatusConfirmed,
	}
	for raw, want := range cases {
		got, err := ParseRecordStatus(raw)
		if err != nil {
			t.Fatalf("ParseRecordStatus(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseRecordStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseRecordStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRecordStatusLabel(t *testing.T) {
	if got := RecordStatusPending.Label(); got != "Pendente" {
		t.Fatalf("unexpected pending label %q", got)
	}
	if got := RecordStatus("other").Label(); got != "other" {
		t.Fatalf("unknown status should fall back to raw value, got %q", got)
	}
	if RecordStatus("other").IsValid() {
		t.Fatal("unknown status must not be valid")
	}
}
