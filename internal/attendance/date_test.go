package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-01-05 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", d.String())

	d, err = ParseDate("2024-01-05T23:30:00-08:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", d.String(), "calendar day is taken in the timestamp's own offset")

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(Record{Date: NewDate(2024, 1, 5), Present: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-05","present":true}`, string(b))

	var rec Record
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, NewDate(2024, 1, 5), rec.Date)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"nope"}`), &rec))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-05", d.String())

	require.NoError(t, d.Scan("2024-02-06 00:00:00+00:00"))
	assert.Equal(t, "2024-02-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-07")))
	assert.Equal(t, "2024-03-07", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("short"))
}

func TestDateValue(t *testing.T) {
	v, err := NewDate(2024, 1, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), v)
}
