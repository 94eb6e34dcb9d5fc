package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: smoke
frames:
  - event_id: 1
    serial: 1
    banks:
      - name: TSCH
        words: [1, 0, 0, 1, 2000, 0]
  - event_id: 2
    serial: 2
    banks:
      - name: TSCT
        words: [1, 0, 0, 1, 2100, 0]
`

func TestLoad_ParsesFramesAndWordBanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	s, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)
	assert.Len(t, s.Frames, 2)

	raws := s.RawFrames()
	assert.Len(t, raws, 2)
	assert.Equal(t, uint16(1), raws[0].EventID)
	bank, ok := raws[0].Bank("TSCH")
	assert.True(t, ok)
	assert.Equal(t, []uint32{1, 0, 0, 1, 2000, 0}, bank.Words())
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}
