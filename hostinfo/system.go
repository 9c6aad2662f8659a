package hostinfo

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LoadLocation must work on hosts without a zoneinfo tree

	"github.com/cockroachdb/errors"
)

// System is the Host backed by the running operating system.
//
// Per platform, SdkInt reports:
//   - android: ro.build.version.sdk, the API level
//   - other unix: the major kernel (or Darwin) release number
//   - windows: the OS build number
//   - anything else: 0
type System struct {
	fallback string
}

// NewSystem returns the running host. fallbackZone is reported when no time zone
// can be detected; empty means DefaultFallbackZone.
func NewSystem(fallbackZone string) *System {
	if fallbackZone == "" {
		fallbackZone = DefaultFallbackZone
	}
	return &System{fallback: fallbackZone}
}

func (s *System) SdkInt() (int, error) {
	return platformSdkInt()
}

// TimeZoneName never fails: an undetectable zone reports the fallback id.
func (s *System) TimeZoneName() (string, error) {
	if zone := platformZone(); zone != "" {
		return zone, nil
	}
	return s.fallback, nil
}

// parseMajor extracts the leading integer of a release string such as "6.18.44-fc".
func parseMajor(release string) (int, error) {
	release = strings.TrimSpace(release)
	end := strings.IndexFunc(release, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(release)
	}
	if end == 0 {
		return 0, errors.Newf("no version number in release %q", release)
	}
	n, err := strconv.Atoi(release[:end])
	if err != nil {
		return 0, errors.Wrapf(err, "parse release %q", release)
	}
	return n, nil
}

// validZone reports whether name is a loadable, named zone.
func validZone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
