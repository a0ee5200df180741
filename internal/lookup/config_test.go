package lookup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFillsOnlyZeroFields(t *testing.T) {
	c := Config{Nameserver: "1.1.1.1", Timeout: 5 * time.Second}
	c.Apply(FileConfig{
		Nameserver:     "8.8.8.8",
		TimeoutSeconds: 30,
		ShodanKey:      "from-file",
	})
	assert.Equal(t, "1.1.1.1", c.Nameserver, "flag value must win over file value")
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, "from-file", c.ShodanKey)
}

func TestEffectiveTimeout(t *testing.T) {
	c := Config{}
	assert.Equal(t, DefaultTimeout, c.EffectiveTimeout())
	c.Timeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, c.EffectiveTimeout())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gorecon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"nameserver: 9.9.9.9\ntimeout_seconds: 15\nshodan_key: abc123\n"), 0o600))

	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FileConfig{Nameserver: "9.9.9.9", TimeoutSeconds: 15, ShodanKey: "abc123"}, fc)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nameserver: [unclosed"), 0o600))
	_, err := LoadFile(path)
	assert.Error(t, err)
}
