package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

type widthPayload struct {
	Width *int `json:"width" validate:"required,min=0"`
}

func decode(t *testing.T, body string) (widthPayload, error) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var p widthPayload
	err := DecodeJSONBody(req, &p)
	return p, err
}

func TestDecodeJSONBodyAcceptsZero(t *testing.T) {
	p, err := decode(t, `{"width":0}`)
	require.NoError(t, err)
	require.NotNil(t, p.Width)
	assert.Equal(t, 0, *p.Width)
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"missing":  `{}`,
		"negative": `{"width":-1}`,
		"unknown":  `{"width":1,"height":2}`,
		"type":     `{"width":"wide"}`,
		"trailing": `{"width":1}{"width":2}`,
		"too big":  `{"width":1,"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyNamesFieldsByJSONTag(t *testing.T) {
	_, err := decode(t, `{"width":-5}`)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 0", details["width"])
}

func TestParseOptionalQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?length=1200&bad=x", nil)

	v, err := ParseOptionalQueryInt(req, "length", 0, 10_000)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 1200, *v)

	v, err = ParseOptionalQueryInt(req, "absent", 0, 10)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseOptionalQueryInt(req, "bad", 0, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseOptionalQueryInt(req, "length", 0, 1000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	n, err := ParseQueryInt(req, "absent", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestStationID(t *testing.T) {
	got, err := StationID("  prensa-01 ")
	require.NoError(t, err)
	assert.Equal(t, "prensa-01", got)

	for _, bad := range []string{"", "   ", "a b", "estação", strings.Repeat("x", MaxStationIDLen+1), "x/y"} {
		_, err := StationID(bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %q", bad)
	}
}

func TestSanitizeStringStripsControlAndCapsRunes(t *testing.T) {
	assert.Equal(t, "R-001", SanitizeString(" R-001\r\n", 0))
	assert.Equal(t, "ção", SanitizeString("çãoxyz", 3))
	assert.Equal(t, "AB", SanitizeString("A\tB", 10))
}
