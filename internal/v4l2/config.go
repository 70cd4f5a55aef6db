// Package v4l2 exposes Video4Linux2 capture nodes as TV input devices.
package v4l2

import (
	"github.com/lanikai/tvinput"
)

// Config describes how to bring up a capture node. The node is advertised as
// one device with a single stream of the configured geometry.
type Config struct {
	// Identifier reported in device events and stream configurations.
	DeviceID int

	// Kind of input the node represents, e.g. tvinput.DeviceHDMI for an
	// HDMI capture dongle.
	Type tvinput.DeviceType

	Width  int
	Height int
	Format uint32 // Pixel format fourcc (e.g. V4L2_PIX_FMT_YUYV)

	HFlip bool // Flip video horizontally
	VFlip bool // Flip video vertically
}
