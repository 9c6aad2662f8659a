//go:build !android && !windows

package hostinfo

import (
	"os"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// zoneSources are consulted in order: $TZ, the /etc/localtime link, /etc/timezone.
type zoneSources struct {
	getenv       func(string) string
	localtime    string
	timezoneFile string
}

var defaultZoneSources = zoneSources{
	getenv:       os.Getenv,
	localtime:    "/etc/localtime",
	timezoneFile: "/etc/timezone",
}

func platformZone() string {
	return defaultZoneSources.detect()
}

// detect returns the first valid zone id, or "" when every source fails.
func (z zoneSources) detect() string {
	if tz := zoneFromPath(strings.TrimPrefix(z.getenv("TZ"), ":")); validZone(tz) {
		return tz
	}

	if target, err := os.Readlink(z.localtime); err == nil {
		if name := zoneFromPath(target); validZone(name) {
			return name
		}
	}

	if data, err := os.ReadFile(z.timezoneFile); err == nil {
		if name := strings.TrimSpace(string(data)); validZone(name) {
			return name
		}
	}

	zlog.Debug().Msg("host time zone not detected")
	return ""
}

// zoneFromPath turns ".../zoneinfo/Asia/Riyadh" into "Asia/Riyadh" and leaves
// plain ids untouched.
func zoneFromPath(p string) string {
	if i := strings.LastIndex(p, "zoneinfo/"); i >= 0 {
		return p[i+len("zoneinfo/"):]
	}
	return p
}
