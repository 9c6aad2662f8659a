//go:build !android && !windows

package hostinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZoneSources(t *testing.T, tz string) (zoneSources, string) {
	t.Helper()
	dir := t.TempDir()
	return zoneSources{
		getenv: func(key string) string {
			if key == "TZ" {
				return tz
			}
			return ""
		},
		localtime:    filepath.Join(dir, "localtime"),
		timezoneFile: filepath.Join(dir, "timezone"),
	}, dir
}

func TestDetectPrefersTZ(t *testing.T) {
	z, _ := newZoneSources(t, ":Asia/Riyadh")
	require.NoError(t, os.WriteFile(z.timezoneFile, []byte("Europe/Paris\n"), 0o644))
	assert.Equal(t, "Asia/Riyadh", z.detect())
}

func TestDetectTZAsPath(t *testing.T) {
	z, _ := newZoneSources(t, "/usr/share/zoneinfo/America/New_York")
	assert.Equal(t, "America/New_York", z.detect())
}

func TestDetectLocaltimeLink(t *testing.T) {
	z, dir := newZoneSources(t, "")
	target := filepath.Join(dir, "usr", "share", "zoneinfo", "Asia", "Tokyo")
	require.NoError(t, os.Symlink(target, z.localtime))
	require.NoError(t, os.WriteFile(z.timezoneFile, []byte("Europe/Paris\n"), 0o644))

	assert.Equal(t, "Asia/Tokyo", z.detect())
}

func TestDetectTimezoneFile(t *testing.T) {
	z, _ := newZoneSources(t, "not/a-zone")
	require.NoError(t, os.WriteFile(z.timezoneFile, []byte("Europe/Paris\n"), 0o644))
	assert.Equal(t, "Europe/Paris", z.detect())
}

func TestDetectNothing(t *testing.T) {
	z, _ := newZoneSources(t, "")
	assert.Empty(t, z.detect())
}

func TestSystemFallsBackWhenUndetected(t *testing.T) {
	saved := defaultZoneSources
	t.Cleanup(func() { defaultZoneSources = saved })
	defaultZoneSources, _ = newZoneSources(t, "")

	zone, err := NewSystem("Asia/Riyadh").TimeZoneName()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Riyadh", zone)
}
