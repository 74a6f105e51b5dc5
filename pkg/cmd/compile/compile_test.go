package compile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

const squareTrack = `<svg xmlns="http://www.w3.org/2000/svg">
  <polygon class="track" points="0,0 40,0 40,40 0,40"/>
  <circle class="pickup" cx="20" cy="20" r="2"/>
</svg>`

func TestNewSummary(t *testing.T) {
	trk, err := track.LoadEmbedded("Pool")
	assert.NilError(t, err)

	s := NewSummary(trk)
	assert.Equal(t, s.Name, "Pool")
	assert.Check(t, is.Len(s.Waypoints, 12))
	assert.Check(t, is.Len(s.Markers, 2))
	assert.Check(t, s.Primitives["track"] > 0)
	assert.Check(t, s.Primitives["static-obstacle"] > 0)
	assert.Check(t, s.Primitives["speed-zone"] > 0)
	assert.Check(t, s.LapLength > 0)
}

func TestCompileCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.svg")
	assert.NilError(t, os.WriteFile(path, []byte(squareTrack), 0o600))

	cmd := NewCompileCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--scale", "0.5", path})
	assert.NilError(t, cmd.Execute())

	var got Summary
	assert.NilError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, got.Name, path)
	assert.Equal(t, got.LapLength, 80.0)
	assert.DeepEqual(t, got.Primitives, map[string]int{"track": 2})
	assert.DeepEqual(t, got.Markers, []marker{{Position: point{X: 10, Y: -10}, Radius: 1}})
}

func TestCompileCmdErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing track", args: []string{}},
		{name: "unknown embedded", args: []string{"--embedded", "Nowhere"}},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "none.svg")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedded = ""
			cmd := NewCompileCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			assert.Check(t, cmd.Execute() != nil)
		})
	}
}
