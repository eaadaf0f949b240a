// Package lots hands out per-product lot numbers and formats them as lot ids.
//
// Every backend increments a product's counter atomically, so concurrent
// operators scanning the same code never receive the same id. Override is the
// one exception to monotonic growth: a super-admin may move a counter anywhere,
// including backwards.
package lots

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

const (
	// Prefix starts every lot id.
	Prefix = "BRASA"
	digits = 5
)

// Counter is the persisted sequence state for one product code.
type Counter struct {
	ProductCode int64 `json:"productCode"`
	LastNumber  int64 `json:"lastNumber"`
}

// Next is the lot id the next allocation will return.
func (c Counter) Next() string {
	return FormatID(c.LastNumber + 1)
}

// Sequencer allocates lot ids. Implementations must serialise Allocate per product code.
type Sequencer interface {
	// Allocate increments the counter for code and returns the new lot id.
	Allocate(ctx context.Context, code int64) (string, error)
	// Peek returns the id Allocate would return without consuming it.
	Peek(ctx context.Context, code int64) (string, error)
	// Override sets the last issued number for code, creating the counter when missing.
	Override(ctx context.Context, code int64, lastNumber int64) error
	// Get returns the counter for code or NOT_FOUND.
	Get(ctx context.Context, code int64) (Counter, error)
	// List returns every counter ordered by product code.
	List(ctx context.Context) ([]Counter, error)
	// Reset removes every counter.
	Reset(ctx context.Context) error
}

// FormatID renders n as BRASA followed by at least five zero-padded digits.
func FormatID(n int64) string {
	return fmt.Sprintf("%s%0*d", Prefix, digits, n)
}

// ParseID extracts the number from a lot id produced by FormatID.
func ParseID(id string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(id), Prefix)
	if !ok || len(rest) < digits {
		return 0, fmt.Errorf("lot id %q does not match %s#####", id, Prefix)
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("lot id %q does not match %s#####", id, Prefix)
	}
	return n, nil
}

func validateCode(code int64) error {
	if code <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product code must be positive")
	}
	return nil
}

func validateOverride(code, lastNumber int64) error {
	if err := validateCode(code); err != nil {
		return err
	}
	if lastNumber < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "last number must be zero or greater")
	}
	return nil
}

func counterNotFound(code int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no lot counter for product %d", code))
}

func storageError(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lot counter "+op+" failed")
}

func isNotFound(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
}
