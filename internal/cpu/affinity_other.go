//go:build !linux

package cpu

import "errors"

var errUnsupported = errors.New("cpu: pinning not supported on this platform")

func setAffinity(int) error {
	return errUnsupported
}
