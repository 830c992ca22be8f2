package timevalue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestNormalizeEncodings(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	tests := []struct {
		name  string
		input any
	}{
		{"iso zulu", "2023-11-14T22:13:20Z"},
		{"iso offset", "2023-11-14T23:13:20+01:00"},
		{"iso naive", "2023-11-14T22:13:20.0000000"},
		{"millis float", float64(1700000000000)},
		{"millis int", int64(1700000000000)},
		{"millis json number", json.Number("1700000000000")},
		{"unix millis", map[string]any{"unix": float64(1700000000000)}},
		{"unix seconds", map[string]any{"unix": float64(1700000000)}},
		{"raw json millis", json.RawMessage(`1700000000000`)},
		{"raw json wrapper seconds", json.RawMessage(`{"unix": 1700000000}`)},
		{"raw json string", json.RawMessage(`"2023-11-14T22:13:20.000Z"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			require.True(t, got.Valid)
			assert.True(t, want.Equal(got.Time), "got %v", got.Time)
		})
	}
}

func TestNormalizeInvalidYieldsNull(t *testing.T) {
	for _, input := range []any{
		nil,
		"",
		"not a date",
		"2024-13-45",
		map[string]any{"unix": "soon"},
		map[string]any{"seconds": 12},
		json.RawMessage(`null`),
		json.RawMessage(`{broken`),
		true,
	} {
		assert.False(t, Normalize(input).Valid, "%#v", input)
	}
}

func TestNormalizeThresholdBoundary(t *testing.T) {
	atThreshold := Normalize(map[string]any{"unix": float64(SecondsThreshold)})
	require.True(t, atThreshold.Valid)
	assert.Equal(t, 3000, atThreshold.Time.Year())

	above := Normalize(map[string]any{"unix": float64(SecondsThreshold + 1)})
	require.True(t, above.Valid)
	assert.Equal(t, 1971, above.Time.Year())
}

func TestNormalizeISORoundTripIsStable(t *testing.T) {
	for _, input := range []any{
		"2024-05-01T10:30:00.123Z",
		float64(1714559400123),
		map[string]any{"unix": float64(1714559400)},
		"2024-05-01",
	} {
		first := Normalize(input)
		again := Normalize(ToISO(Normalize(ToISO(first))))
		assert.Equal(t, first, again, "%#v", input)
	}
}

func TestToISOOfNull(t *testing.T) {
	assert.Equal(t, "", ToISO(null.Time{}))
}

func TestValueKeepsWireForm(t *testing.T) {
	var rec struct {
		Start Value `json:"startTime"`
		End   Value `json:"endTime"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"startTime":{"unix":1700000000},"endTime":null}`), &rec))

	assert.True(t, rec.Start.Time().Valid)
	assert.False(t, rec.End.Time().Valid)
	assert.True(t, rec.End.IsZero())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startTime":{"unix":1700000000},"endTime":null}`, string(out))
}

func TestDayBoundaries(t *testing.T) {
	day := time.Date(2024, 5, 31, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), StartOfDay(day, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), EndOfDay(day, time.UTC))

	start, end := MonthRange(time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 29, end.Day())
}
