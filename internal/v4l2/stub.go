// +build !linux

package v4l2

import (
	"github.com/lanikai/tvinput"
)

func Open(path string, config Config) (tvinput.Device, error) {
	panic("V4L2 support requires linux")
}
