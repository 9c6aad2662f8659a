//go:build android

package hostinfo

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// getprop reads an Android system property.
func getprop(name string) (string, error) {
	out, err := exec.Command("getprop", name).Output()
	if err != nil {
		return "", errors.Wrapf(err, "getprop %s", name)
	}
	return strings.TrimSpace(string(out)), nil
}

func platformSdkInt() (int, error) {
	v, err := getprop("ro.build.version.sdk")
	if err != nil {
		return 0, err
	}
	sdk, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse sdk level %q", v)
	}
	return sdk, nil
}

func platformZone() string {
	zone, err := getprop("persist.sys.timezone")
	if err != nil || !validZone(zone) {
		return ""
	}
	return zone
}
