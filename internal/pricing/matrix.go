package pricing

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

//
// Pricing matrix (resolution -> duration -> credits)
//

// Credits is a credit cost for one cell of the matrix.
// Decoding is lenient: numbers and numeric strings are accepted, anything
// else decodes to 0 so a malformed cell prices as free instead of failing.
type Credits float64

func (c *Credits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*c = 0
			return nil
		}
		data = []byte(s)
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		*c = 0
		return nil
	}
	*c = Credits(f)
	return nil
}

// Options maps a duration (seconds, as a string key) to its credit cost,
// preserving insertion order.
type Options = orderedmap.OrderedMap[string, Credits]

func newOptions() *Options {
	return orderedmap.New[string, Credits]()
}

// Matrix is the sparse pricing matrix of a model. Resolutions and their
// options keep the order in which they were first inserted; the first
// option of a resolution is its default.
type Matrix struct {
	rows *orderedmap.OrderedMap[string, *Options]
}

// NewMatrix returns an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{rows: orderedmap.New[string, *Options]()}
}

func (m *Matrix) init() {
	if m.rows == nil {
		m.rows = orderedmap.New[string, *Options]()
	}
}

// Set stores credits for (resolution, option). An existing cell is replaced
// in place and keeps its position.
func (m *Matrix) Set(resolution, option string, credits float64) {
	m.init()
	opts, ok := m.rows.Get(resolution)
	if !ok || opts == nil {
		opts = newOptions()
		m.rows.Set(resolution, opts)
	}
	opts.Set(option, Credits(credits))
}

// Get returns the credits stored for (resolution, option).
func (m *Matrix) Get(resolution, option string) (float64, bool) {
	opts := m.Options(resolution)
	if opts == nil {
		return 0, false
	}
	v, ok := opts.Get(option)
	return float64(v), ok
}

// Options returns the option mapping of a resolution, or nil.
func (m *Matrix) Options(resolution string) *Options {
	if m == nil || m.rows == nil {
		return nil
	}
	opts, _ := m.rows.Get(resolution)
	return opts
}

// Has reports whether the resolution is a key of the matrix.
func (m *Matrix) Has(resolution string) bool {
	if m == nil || m.rows == nil {
		return false
	}
	_, ok := m.rows.Get(resolution)
	return ok
}

// Resolutions returns the resolution keys in insertion order.
func (m *Matrix) Resolutions() []string {
	if m == nil || m.rows == nil {
		return []string{}
	}
	keys := make([]string, 0, m.rows.Len())
	for pair := m.rows.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of resolutions.
func (m *Matrix) Len() int {
	if m == nil || m.rows == nil {
		return 0
	}
	return m.rows.Len()
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix()
	if m == nil || m.rows == nil {
		return out
	}
	for row := m.rows.Oldest(); row != nil; row = row.Next() {
		opts := newOptions()
		if row.Value != nil {
			for cell := row.Value.Oldest(); cell != nil; cell = cell.Next() {
				opts.Set(cell.Key, cell.Value)
			}
		}
		out.rows.Set(row.Key, opts)
	}
	return out
}

// Equal compares two matrices including key order.
func (m *Matrix) Equal(other *Matrix) bool {
	a, _ := m.MarshalJSON()
	b, _ := other.MarshalJSON()
	return bytes.Equal(a, b)
}

// Each calls fn for every cell in order.
func (m *Matrix) Each(fn func(resolution, option string, credits float64)) {
	if m == nil || m.rows == nil {
		return
	}
	for row := m.rows.Oldest(); row != nil; row = row.Next() {
		if row.Value == nil {
			continue
		}
		for cell := row.Value.Oldest(); cell != nil; cell = cell.Next() {
			fn(row.Key, cell.Key, float64(cell.Value))
		}
	}
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	if m == nil || m.rows == nil || m.rows.Len() == 0 {
		return []byte("{}"), nil
	}
	return m.rows.MarshalJSON()
}

// UnmarshalJSON never fails: a body that is not an object yields an empty
// matrix and a resolution whose value is not an object yields no options.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	m.rows = orderedmap.New[string, *Options]()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return nil
	}
	for row := raw.Oldest(); row != nil; row = row.Next() {
		opts := newOptions()
		if err := opts.UnmarshalJSON(row.Value); err != nil {
			opts = newOptions()
		}
		m.rows.Set(row.Key, opts)
	}
	return nil
}

// Value stores the matrix as a json column. jsonb is not used because it
// does not keep object key order.
func (m *Matrix) Value() (driver.Value, error) {
	return m.MarshalJSON()
}

func (m *Matrix) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.rows = orderedmap.New[string, *Options]()
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("pricing matrix: expected []byte, got %T", value)
	}
}
