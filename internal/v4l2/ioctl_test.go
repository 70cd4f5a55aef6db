// +build linux

package v4l2

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestFourcc(t *testing.T) {
	assert.Equal(t, uint32(0x56595559), uint32(V4L2_PIX_FMT_YUYV))
	assert.Equal(t, uint32(0x34363248), uint32(V4L2_PIX_FMT_H264))
}

func TestRequestCodes(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout assertions assume a 64-bit kernel ABI")
	}

	// Known amd64 values from <linux/videodev2.h>.
	assert.Equal(t, uintptr(0x40045612), uintptr(VIDIOC_STREAMON))
	assert.Equal(t, uintptr(0x40045613), uintptr(VIDIOC_STREAMOFF))
	assert.Equal(t, uintptr(0xc0585611), uintptr(VIDIOC_DQBUF))
	assert.Equal(t, uintptr(0xc058560f), uintptr(VIDIOC_QBUF))
}

func TestStructLayout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout assertions assume a 64-bit kernel ABI")
	}

	assert.Equal(t, uintptr(88), unsafe.Sizeof(v4l2_buffer{}))
	assert.Equal(t, uintptr(208), unsafe.Sizeof(v4l2_format{}))
	assert.Equal(t, uintptr(20), unsafe.Sizeof(v4l2_requestbuffers{}))
	assert.Equal(t, uintptr(104), unsafe.Sizeof(v4l2_capability{}))
}

func TestPixFormatMarshal(t *testing.T) {
	p := v4l2_pix_format{
		width:       1920,
		height:      1080,
		pixelformat: V4L2_PIX_FMT_YUYV,
		field:       V4L2_FIELD_ANY,
	}
	union := p.marshal()

	assert.Equal(t, uint32(1920), nativeEndian.Uint32(union[0:]))
	assert.Equal(t, uint32(1080), nativeEndian.Uint32(union[4:]))
	assert.Equal(t, uint32(V4L2_PIX_FMT_YUYV), nativeEndian.Uint32(union[8:]))
	assert.Equal(t, uint32(V4L2_FIELD_ANY), nativeEndian.Uint32(union[12:]))
}
