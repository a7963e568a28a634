package persist

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sarkhq/console/pkg/isotime"
)

// Revive decodes raw JSON into generic values (maps, slices, float64,
// bool, string, nil). Every string leaf that looks like a persisted
// timestamp comes back as a time.Time.
func Revive(raw []byte) (any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid json")
	}
	return reviveValue(gjson.ParseBytes(raw)), nil
}

func reviveValue(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Float()
	case gjson.String:
		return reviveString(r.Str)
	}

	if r.IsArray() {
		out := make([]any, 0)
		r.ForEach(func(_, v gjson.Result) bool {
			out = append(out, reviveValue(v))
			return true
		})
		return out
	}
	out := make(map[string]any)
	r.ForEach(func(k, v gjson.Result) bool {
		out[k.Str] = reviveValue(v)
		return true
	})
	return out
}

func reviveString(s string) any {
	if !isotime.Pattern.MatchString(s) {
		return s
	}
	t, err := time.Parse(isotime.Layout, s)
	if err != nil {
		return s
	}
	return t.UTC()
}
