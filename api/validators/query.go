package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

// ParseQueryInt returns defaultVal when key is absent and a validation error
// when it is not an integer within [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	value, ok, err := parseQueryInt(r, key, min, max)
	if err != nil || !ok {
		return defaultVal, err
	}
	return value, nil
}

// ParseOptionalQueryInt is ParseQueryInt for parameters whose absence means
// something different from any value.
func ParseOptionalQueryInt(r *http.Request, key string, min, max int) (*int, error) {
	value, ok, err := parseQueryInt(r, key, min, max)
	if err != nil || !ok {
		return nil, err
	}
	return &value, nil
}

func parseQueryInt(r *http.Request, key string, min, max int) (int, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, true, nil
}
