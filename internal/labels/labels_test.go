package labels_test

import (
	"testing"

	"github.com/sgaunet/ci-bridge/internal/labels"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{name: "empty string", list: "", want: nil},
		{name: "single label", list: "gpu", want: []string{"gpu"}},
		{name: "multiple labels", list: "gpu,linux,x64", want: []string{"gpu", "linux", "x64"}},
		{name: "whitespace trimmed", list: " gpu , linux ", want: []string{"gpu", "linux"}},
		{name: "duplicates dropped", list: "gpu,gpu,linux", want: []string{"gpu", "linux"}},
		{name: "empty entries dropped", list: "gpu,,linux,", want: []string{"gpu", "linux"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labels.Parse(tt.list))
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "gpu,linux", labels.Join([]string{"gpu", "linux"}))
	assert.Equal(t, "", labels.Join(nil))
}

func TestSuperset(t *testing.T) {
	tests := []struct {
		name string
		have []string
		want []string
		ok   bool
	}{
		{name: "exact match", have: []string{"a", "b"}, want: []string{"a", "b"}, ok: true},
		{name: "superset", have: []string{"a", "b", "c"}, want: []string{"a", "b"}, ok: true},
		{name: "subset fails", have: []string{"a"}, want: []string{"a", "b"}, ok: false},
		{name: "disjoint fails", have: []string{"x"}, want: []string{"a"}, ok: false},
		{name: "empty want matches", have: []string{"a"}, want: nil, ok: true},
		{name: "empty have fails non-empty want", have: nil, want: []string{"a"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, labels.Superset(tt.have, tt.want))
		})
	}
}
