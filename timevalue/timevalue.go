//  This file is part of the eliona project.
//  Copyright © 2022 LEICOM iTEC AG. All Rights Reserved.
//  ______ _ _
// |  ____| (_)
// | |__  | |_  ___  _ __   __ _
// |  __| | | |/ _ \| '_ \ / _` |
// | |____| | | (_) | | | | (_| |
// |______|_|_|\___/|_| |_|\__,_|
//
//  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING
//  BUT NOT LIMITED  TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
//  NON INFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM,
//  DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
//  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package timevalue folds every time encoding the booking backend produces
// into a single instant type. No other package inspects raw time encodings.
package timevalue

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// SecondsThreshold separates second and millisecond epochs in {unix: n}
// wrappers. Millisecond values at or below it would land before 1971.
const SecondsThreshold = 32503680000

// maxEpochMillis is the largest instant a browser Date can hold.
const maxEpochMillis = 8.64e15

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize converts an ISO-8601 string, an epoch-millisecond number, a
// {"unix": n} wrapper or raw JSON holding any of those into an instant.
// Anything unrecognised yields an invalid null.Time.
func Normalize(v any) null.Time {
	switch x := v.(type) {
	case nil:
		return null.Time{}
	case null.Time:
		return x
	case *null.Time:
		if x == nil {
			return null.Time{}
		}
		return *x
	case time.Time:
		return null.TimeFrom(x.UTC())
	case *time.Time:
		if x == nil {
			return null.Time{}
		}
		return null.TimeFrom(x.UTC())
	case Value:
		return x.Time()
	case *Value:
		if x == nil {
			return null.Time{}
		}
		return x.Time()
	case json.RawMessage:
		return fromJSON(x)
	case []byte:
		return fromJSON(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return null.Time{}
		}
		return fromMillis(f)
	case float64:
		return fromMillis(x)
	case float32:
		return fromMillis(float64(x))
	case int:
		return fromMillis(float64(x))
	case int32:
		return fromMillis(float64(x))
	case int64:
		return fromMillis(float64(x))
	case uint32:
		return fromMillis(float64(x))
	case uint64:
		return fromMillis(float64(x))
	case string:
		return parse(x)
	case map[string]any:
		n, ok := number(x["unix"])
		if !ok {
			return null.Time{}
		}
		if math.Abs(n) > SecondsThreshold {
			return fromMillis(n)
		}
		return fromMillis(n * 1000)
	}
	return null.Time{}
}

// ToISO renders an instant the way the backend accepts it. Invalid instants
// render as the empty string.
func ToISO(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}

func fromJSON(raw []byte) null.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return null.Time{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return null.Time{}
	}
	return Normalize(v)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func fromMillis(ms float64) null.Time {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return null.Time{}
	}
	whole := math.Floor(ms)
	t := time.UnixMilli(int64(whole)).Add(time.Duration((ms - whole) * float64(time.Millisecond)))
	return null.TimeFrom(t.UTC())
}

func parse(s string) null.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return null.TimeFrom(t.UTC())
		}
	}
	return null.Time{}
}
