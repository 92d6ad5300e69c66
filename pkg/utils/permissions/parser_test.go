package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: []string{}},
		{input: "Internet", want: []string{"Internet"}},
		{input: "Internet;Camera;", want: []string{"Internet", "Camera"}},
		{input: " Internet , Camera ;Audio", want: []string{"Internet", "Camera", "Audio"}},
		{input: "Camera;;Camera;Internet", want: []string{"Camera", "Internet"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.input))
		})
	}
}

func TestFirstMissing(t *testing.T) {
	granted := NewSet([]string{"Internet", "Camera", ""})

	missing, ok := granted.FirstMissing([]string{"Internet", "Camera"})
	assert.False(t, ok)
	assert.Empty(t, missing)

	missing, ok = granted.FirstMissing([]string{"Internet", "Audio", "Location"})
	assert.True(t, ok)
	assert.Equal(t, "Audio", missing)

	_, ok = granted.FirstMissing(nil)
	assert.False(t, ok)

	assert.True(t, granted.Contains(""))
	_, ok = granted.FirstMissing([]string{""})
	assert.False(t, ok)

	missing, ok = NewSet([]string{"Internet"}).FirstMissing([]string{"Internet", ""})
	assert.True(t, ok)
	assert.Equal(t, "", missing)

	_, ok = NewSet(nil).FirstMissing([]string{""})
	assert.True(t, ok)
}

// Every subset of the universe is checked against every granted subset:
// the required list passes exactly when it is contained in the grant.
func TestFirstMissing_AllSubsets(t *testing.T) {
	universe := []string{"Internet", "Camera", "Audio", "Location", ""}
	subset := func(mask int) []string {
		var ids []string
		for i, id := range universe {
			if mask&(1<<i) != 0 {
				ids = append(ids, id)
			}
		}
		return ids
	}

	for req := 0; req < 1<<len(universe); req++ {
		for grant := 0; grant < 1<<len(universe); grant++ {
			_, missing := NewSet(subset(grant)).FirstMissing(subset(req))
			contained := req&^grant == 0
			assert.Equal(t, !contained, missing, "required=%v granted=%v", subset(req), subset(grant))
		}
	}
}

func TestSorted(t *testing.T) {
	assert.Equal(t, []string{"Audio", "Camera", "Internet"},
		NewSet([]string{"Internet", "Audio", "Camera"}).Sorted())
}
