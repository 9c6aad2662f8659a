//go:build unix && !android

package hostinfo

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func platformSdkInt() (int, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return 0, errors.Wrap(err, "uname")
	}
	return parseMajor(unix.ByteSliceToString(uts.Release[:]))
}
