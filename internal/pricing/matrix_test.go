package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_JSONKeepsInsertionOrder(t *testing.T) {
	raw := `{"1080p":{"8":22,"5":15},"720p":{"5":10}}`

	m := NewMatrix()
	require.NoError(t, json.Unmarshal([]byte(raw), m))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
	assert.Equal(t, raw, string(out))
}

func TestMatrix_SetReplacesInPlace(t *testing.T) {
	m := NewMatrix()
	m.Set("720p", "5", 10)
	m.Set("720p", "8", 15)
	m.Set("1080p", "5", 20)
	m.Set("720p", "5", 12)

	assert.Equal(t, []string{"720p", "1080p"}, m.Resolutions())
	assert.Equal(t, []string{"5", "8"}, ListOptionsForResolution(m, "720p"))

	v, ok := m.Get("720p", "5")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = m.Get("720p", "10")
	assert.False(t, ok)
}

func TestMatrix_CloneIsIndependent(t *testing.T) {
	m := NewMatrix()
	m.Set("720p", "5", 10)

	c := m.Clone()
	c.Set("720p", "5", 99)
	c.Set("4k", "5", 50)

	v, _ := m.Get("720p", "5")
	assert.Equal(t, 10.0, v)
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Equal(c))
	assert.True(t, m.Equal(m.Clone()))
}

func TestMatrix_EmptyAndNullEncoding(t *testing.T) {
	var m *Matrix
	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	out, err = json.Marshal(NewMatrix())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))

	decoded := NewMatrix()
	require.NoError(t, json.Unmarshal([]byte(`null`), decoded))
	assert.Equal(t, 0, decoded.Len())

	require.NoError(t, json.Unmarshal([]byte(`[1,2]`), decoded))
	assert.Equal(t, 0, decoded.Len())
}

func TestMatrix_ScanValue(t *testing.T) {
	m := NewMatrix()
	m.Set("720p", "5", 10)
	m.Set("720p", "8", 15.5)

	v, err := m.Value()
	require.NoError(t, err)

	var scanned Matrix
	require.NoError(t, scanned.Scan(v))
	assert.True(t, m.Equal(&scanned))

	require.NoError(t, scanned.Scan(`{"4k":{"5":40}}`))
	assert.Equal(t, []string{"4k"}, scanned.Resolutions())

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, 0, scanned.Len())

	assert.Error(t, scanned.Scan(42))
}

func TestCredits_LenientDecoding(t *testing.T) {
	tests := []struct {
		raw      string
		expected Credits
	}{
		{raw: `12`, expected: 12},
		{raw: `12.5`, expected: 12.5},
		{raw: `"7"`, expected: 7},
		{raw: `"seven"`, expected: 0},
		{raw: `-3`, expected: 0},
		{raw: `true`, expected: 0},
		{raw: `{"a":1}`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var c Credits
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &c))
			assert.Equal(t, tt.expected, c)
		})
	}
}
