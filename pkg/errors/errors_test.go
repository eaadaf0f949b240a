package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:         {http.StatusBadRequest, false, "validation failed", true},
		CodeUnauthorized:       {http.StatusUnauthorized, false, "authentication required", false},
		CodeForbidden:          {http.StatusForbidden, false, "access denied", false},
		CodeNotFound:           {http.StatusNotFound, false, "resource not found", false},
		CodeConflict:           {http.StatusConflict, false, "conflict detected", false},
		CodeStateConflict:      {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
		CodeIdempotency:        {http.StatusConflict, false, "idempotency key reused", true},
		CodeRateLimit:          {http.StatusTooManyRequests, false, "rate limit exceeded", false},
		CodeInternal:           {http.StatusInternalServerError, true, "internal server error", false},
		CodeDependency:         {http.StatusServiceUnavailable, true, "dependency unavailable", true},
		CodeCatalogUnavailable: {http.StatusServiceUnavailable, false, "product catalog unavailable", true},
		CodePartialReset:       {http.StatusInternalServerError, false, "reset partially applied", true},
	}
	if len(want) != len(metadataByCode) {
		t.Fatalf("metadata table has %d codes, test covers %d", len(metadataByCode), len(want))
	}
	for code, meta := range want {
		if got := MetadataFor(code); got != meta {
			t.Errorf("%s: got %+v want %+v", code, got, meta)
		}
	}
	if got := MetadataFor("LOT_OVERFLOW"); got != want[CodeInternal] {
		t.Fatalf("unknown code should render as internal, got %+v", got)
	}
}

func TestCatalogUnavailableIsNotRetried(t *testing.T) {
	// a missing catalog file does not heal by retrying the request
	err := Wrap(CodeCatalogUnavailable, stdErrors.New("open produtos.xlsx: no such file"), "catalog load")
	if IsRetryable(err) {
		t.Fatalf("catalog failures must not be retryable")
	}
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("dial tcp: i/o timeout"), "lot counter")) {
		t.Fatalf("dependency failures should be retryable")
	}
	if !IsRetryable(stdErrors.New("connection reset by peer")) {
		t.Fatalf("untyped errors are treated as transient")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}

func TestPartialResetKeepsDetailsThroughWrapping(t *testing.T) {
	reset := New(CodePartialReset, "counters not cleared").
		WithDetails(map[string]any{"records_deleted": 12})
	err := fmt.Errorf("clear all: %w", reset)

	typed := As(err)
	if typed == nil {
		t.Fatalf("expected typed error in chain")
	}
	if typed.Code() != CodePartialReset || typed.Message() != "counters not cleared" {
		t.Fatalf("unexpected error %s / %q", typed.Code(), typed.Message())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["records_deleted"] != 12 {
		t.Fatalf("details lost: %#v", typed.Details())
	}
	if !IsCode(err, CodePartialReset) || IsCode(err, CodeInternal) {
		t.Fatalf("IsCode mismatch for %v", err)
	}
}

func TestWrapKeepsCauseReachable(t *testing.T) {
	cause := stdErrors.New("UNIQUE constraint failed: production_records.lot")
	err := Wrap(CodeConflict, cause, "lot already recorded")
	if !stdErrors.Is(err, cause) {
		t.Fatalf("cause not reachable through Unwrap")
	}
	if New(CodeValidation, "thickness").Details() != nil {
		t.Fatalf("details should default to nil")
	}
	var nilErr *Error
	if nilErr.Error() != "" || nilErr.Unwrap() != nil || nilErr.WithDetails("x") != nil {
		t.Fatalf("nil receiver should be inert")
	}
	if As(nil) != nil || As(cause) != nil {
		t.Fatalf("As should only find *Error values")
	}
}

func TestErrorStringCarriesCause(t *testing.T) {
	if got := New(CodeNotFound, "record 7").Error(); got != "NOT_FOUND: record 7" {
		t.Fatalf("unexpected %q", got)
	}
	got := Wrap(CodeDependency, stdErrors.New("connection refused"), "lot counter").Error()
	if got != "DEPENDENCY_ERROR: lot counter: connection refused" {
		t.Fatalf("unexpected %q", got)
	}
}
