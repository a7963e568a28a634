package isotime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUsesMillisecondLayout(t *testing.T) {
	ts := From(time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.FixedZone("x", 3600)))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T08:30:00.123Z"`, string(data))
	assert.True(t, Pattern.MatchString(ts.String()))
}

func TestRoundTrip(t *testing.T) {
	type doc struct {
		At    Time  `json:"at"`
		Maybe *Time `json:"maybe"`
	}
	in := doc{At: Now()}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.At.Equal(out.At.Time))
	assert.Equal(t, in, out)
	assert.Nil(t, out.Maybe)
}

func TestParseAcceptsRFC3339(t *testing.T) {
	ts, err := Parse("2024-03-01T08:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T07:30:00.000Z", ts.String())

	_, err = Parse("yesterday")
	assert.Error(t, err)
}
