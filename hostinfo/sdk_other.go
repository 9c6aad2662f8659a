//go:build !unix && !windows

package hostinfo

func platformSdkInt() (int, error) {
	return 0, nil
}
