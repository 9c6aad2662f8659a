package hostinfo

import "github.com/cockroachdb/errors"

// Host reads facts from the operating system the bridge runs on.
type Host interface {
	// SdkInt returns the platform API/version number, never negative.
	SdkInt() (int, error)
	// TimeZoneName returns the configured time-zone identifier, never empty.
	TimeZoneName() (string, error)
}

// Static is a Host reporting fixed values. A negative SDK or an empty Zone is
// reported as an error rather than returned.
type Static struct {
	SDK  int
	Zone string
}

func (s Static) SdkInt() (int, error) {
	if s.SDK < 0 {
		return 0, errors.Newf("negative sdk level %d", s.SDK)
	}
	return s.SDK, nil
}

func (s Static) TimeZoneName() (string, error) {
	if s.Zone == "" {
		return "", errors.New("empty time zone id")
	}
	return s.Zone, nil
}

// DefaultFallbackZone is reported when the host time zone cannot be determined.
const DefaultFallbackZone = "UTC"
