package validators

import (
	"strings"
	"unicode"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

const MaxStationIDLen = 64

// SanitizeString trims input, drops control characters and caps it at maxLen
// runes. Scanner input often carries a trailing CR or tab.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return strings.TrimSpace(cleaned)
}

// StationID normalises a station identifier taken from the URL. Stations are
// named by the shop floor, so only letters, digits, dash, dot and underscore
// are accepted.
func StationID(raw string) (string, error) {
	station := strings.TrimSpace(raw)
	if station == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "station id is required")
	}
	if len(station) > MaxStationIDLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "station id too long").
			WithDetails(map[string]any{"field": "stationId", "max": MaxStationIDLen})
	}
	for _, r := range station {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "station id has invalid characters").
				WithDetails(map[string]any{"field": "stationId"})
		}
	}
	return station, nil
}
