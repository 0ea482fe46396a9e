package nav

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	agent := cp.Vector{X: 100, Y: 100}
	cases := []struct {
		name string
		in   []cp.Vector
		want Path
	}{
		{
			name: "drops_first_point_under_agent",
			in:   []cp.Vector{{X: 102, Y: 101}, {X: 150, Y: 100}},
			want: Path{{X: 150, Y: 100}},
		},
		{
			name: "keeps_first_point_beyond_threshold",
			in:   []cp.Vector{{X: 110, Y: 100}, {X: 150, Y: 100}},
			want: Path{{X: 110, Y: 100}, {X: 150, Y: 100}},
		},
		{
			name: "merges_near_duplicates",
			in:   []cp.Vector{{X: 150, Y: 100}, {X: 150.5, Y: 100}, {X: 151.2, Y: 100}, {X: 200, Y: 100}},
			want: Path{{X: 150, Y: 100}, {X: 151.2, Y: 100}, {X: 200, Y: 100}},
		},
		{
			name: "empty",
			in:   nil,
			want: Path{},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CleanPath(c.in, agent, 1, 4))
		})
	}
}

func TestPathLength(t *testing.T) {
	p := Path{{X: 3, Y: 4}, {X: 3, Y: 10}}
	assert.InDelta(t, 11.0, p.Length(cp.Vector{}), 1e-9)
	assert.Zero(t, Path{}.Length(cp.Vector{X: 5}))
}
