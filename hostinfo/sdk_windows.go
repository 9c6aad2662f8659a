//go:build windows

package hostinfo

import "golang.org/x/sys/windows"

func platformSdkInt() (int, error) {
	return int(windows.RtlGetVersion().BuildNumber), nil
}
