package tracks

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracksCmd(t *testing.T) {
	cmd := NewTracksCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "1. Pool"))
	assert.True(t, strings.HasPrefix(lines[1], "2. Uphill Both Ways"))
	assert.True(t, strings.HasPrefix(lines[2], "3. Milky Way"))
}
