package prefabs

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilenav/nav"
)

func TestLoadAgentSpec(t *testing.T) {
	spec, err := LoadAgentSpec()
	require.NoError(t, err)

	assert.Equal(t, 8.0, spec.Motion.ArrivalThreshold)
	assert.Greater(t, spec.Motion.Speed, 0.0)
	assert.Greater(t, spec.Motion.TurnLerp, 0.0)
	assert.Greater(t, spec.Collider.Radius, 0.0)
	assert.Equal(t, colornames.Gold, spec.Color.Color)
}

func TestLoadNavigationSpec(t *testing.T) {
	spec, err := LoadNavigationSpec()
	require.NoError(t, err)

	want := nav.DefaultConfig()
	assert.Equal(t, want, spec.Planner)
	assert.Equal(t, 16, spec.SpawnSearchHops)
	assert.Equal(t, color.NRGBA{R: 0x00, G: 0xe5, B: 0xff, A: 0xcc}, spec.PathColor.Color)
}

func TestLoadSpecMissingFile(t *testing.T) {
	_, err := LoadSpec[AgentSpec]("nope.yaml")
	assert.ErrorContains(t, err, "prefabs: load nope.yaml")
}

func TestYAMLColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{in: `"#102030"`, want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}},
		{in: `"#10203040"`, want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{in: `Crimson`, want: colornames.Crimson},
		{in: `"#12"`, wantErr: true},
		{in: `"#zz0000"`, wantErr: true},
		{in: `[1, 2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c YAMLColor
			err := yaml.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Color)
		})
	}
}

func TestYAMLColorOr(t *testing.T) {
	var unset YAMLColor
	assert.Equal(t, colornames.Red, unset.Or(colornames.Red))
	set := YAMLColor{Color: colornames.Blue}
	assert.Equal(t, colornames.Blue, set.Or(colornames.Red))
}

func TestCleanPrefabPath(t *testing.T) {
	assert.Equal(t, "agent.yaml", cleanPrefabPath("prefabs/agent.yaml"))
	assert.Equal(t, "agent.yaml", cleanPrefabPath("agent.yaml"))
	assert.Equal(t, "", cleanPrefabPath(""))
}
