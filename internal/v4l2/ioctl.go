// Video4Linux is a Linux-specific API. Only build if GOOS=linux.
// +build linux

package v4l2

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding, from <asm-generic/ioctl.h>.
const (
	iocWrite = 1
	iocRead  = 2

	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// Request codes from <linux/videodev2.h>, restricted to the calls the
// capture path actually issues.
const (
	VIDIOC_QUERYCAP  = iocRead<<iocDirShift | unsafe.Sizeof(v4l2_capability{})<<iocSizeShift | 'V'<<iocTypeShift | 0
	VIDIOC_S_FMT     = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_format{})<<iocSizeShift | 'V'<<iocTypeShift | 5
	VIDIOC_REQBUFS   = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_requestbuffers{})<<iocSizeShift | 'V'<<iocTypeShift | 8
	VIDIOC_QUERYBUF  = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_buffer{})<<iocSizeShift | 'V'<<iocTypeShift | 9
	VIDIOC_QBUF      = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_buffer{})<<iocSizeShift | 'V'<<iocTypeShift | 15
	VIDIOC_STREAMON  = iocWrite<<iocDirShift | unsafe.Sizeof(int32(0))<<iocSizeShift | 'V'<<iocTypeShift | 18
	VIDIOC_STREAMOFF = iocWrite<<iocDirShift | unsafe.Sizeof(int32(0))<<iocSizeShift | 'V'<<iocTypeShift | 19
	VIDIOC_DQBUF     = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_buffer{})<<iocSizeShift | 'V'<<iocTypeShift | 17
	VIDIOC_S_CTRL    = (iocRead|iocWrite)<<iocDirShift | unsafe.Sizeof(v4l2_control{})<<iocSizeShift | 'V'<<iocTypeShift | 28
)

const (
	V4L2_BUF_TYPE_VIDEO_CAPTURE = 1
	V4L2_MEMORY_MMAP            = 1
	V4L2_FIELD_ANY              = 0

	V4L2_CID_BASE  = 0x00980900
	V4L2_CID_HFLIP = V4L2_CID_BASE + 20
	V4L2_CID_VFLIP = V4L2_CID_BASE + 21
)

// Pixel format fourcc codes.
const (
	V4L2_PIX_FMT_YUYV = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	V4L2_PIX_FMT_NV21 = 'N' | 'V'<<8 | '2'<<16 | '1'<<24
	V4L2_PIX_FMT_H264 = 'H' | '2'<<8 | '6'<<16 | '4'<<24
)

// Wire layouts from <linux/videodev2.h>. Padding matches the 64-bit kernel
// ABI; 32-bit kernels lay out v4l2_buffer differently.

type v4l2_capability struct {
	driver       [16]byte
	card         [32]byte
	bus_info     [32]byte
	version      uint32
	capabilities uint32
	device_caps  uint32
	reserved     [3]uint32
}

type v4l2_timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type v4l2_buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         [4]byte // align timestamp to 8 bytes
	timestamp unix.Timeval
	timecode  v4l2_timecode
	sequence  uint32
	memory    uint32
	m         [8]byte // union: offset, userptr, planes, fd
	length    uint32
	reserved2 uint32
	reserved  uint32
}

type v4l2_requestbuffers struct {
	count    uint32
	typ      uint32
	memory   uint32
	reserved [2]uint32
}

type v4l2_control struct {
	id    uint32
	value int32
}

type v4l2_pix_format struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
}

type v4l2_format struct {
	typ uint32
	_   [4]byte // union alignment
	fmt [200]byte
}

// marshal packs the pixel format into the v4l2_format union area.
func (p v4l2_pix_format) marshal() (union [200]byte) {
	fields := []uint32{
		p.width, p.height, p.pixelformat, p.field,
		p.bytesperline, p.sizeimage, p.colorspace, p.priv,
	}
	for i, v := range fields {
		nativeEndian.PutUint32(union[4*i:], v)
	}
	return
}

// nativeEndian is the byte order of the host, needed to pack ioctl payloads
// the way the kernel reads them.
var nativeEndian binary.ByteOrder

func init() {
	var probe uint16 = 1
	if *(*byte)(unsafe.Pointer(&probe)) == 1 {
		nativeEndian = binary.LittleEndian
	} else {
		nativeEndian = binary.BigEndian
	}
}
