// +build linux

package v4l2

import (
	"bytes"
	"io"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// A V4L2 capture node. One kernel buffer is kept memory mapped and cycled
// through the driver queue; readFrame copies each dequeued frame out before
// re-enqueueing it.
type device struct {
	// Number of requested kernel driver buffers.
	// TODO: Currently only numBuffers = 1 is supported.
	numBuffers int

	// Device path, usually "/dev/video0".
	path string

	// File descriptor of v4l2 device.
	fd int

	// Memory-mapped buffer.
	mmap []byte
}

func openDevice(path string) (*device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}

	return &device{
		numBuffers: 1,
		path:       path,
		fd:         fd,
	}, nil
}

func (dev *device) close() error {
	if dev.mmap != nil {
		if err := dev.stop(); err != nil {
			return err
		}
	}

	return unix.Close(dev.fd)
}

func (dev *device) ioctl(request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(dev.fd),
		request,
		uintptr(arg),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// name returns the card name the driver reports for this node.
func (dev *device) name() (string, error) {
	var caps v4l2_capability
	if err := dev.ioctl(VIDIOC_QUERYCAP, unsafe.Pointer(&caps)); err != nil {
		return "", err
	}

	card := caps.card[:]
	if i := bytes.IndexByte(card, 0); i >= 0 {
		card = card[:i]
	}
	return string(card), nil
}

// Query buffer parameters.
func (dev *device) queryBuffer(n uint32) (length, offset uint32, err error) {
	qb := v4l2_buffer{
		index:  n,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err = dev.ioctl(VIDIOC_QUERYBUF, unsafe.Pointer(&qb)); err != nil {
		return
	}

	length = qb.length
	offset = nativeEndian.Uint32(qb.m[0:4])
	return
}

// Request specified number of kernel buffers memory-mapped to user-space.
func (dev *device) requestBuffers(n int) error {
	rb := v4l2_requestbuffers{
		count:  uint32(n),
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	return dev.ioctl(VIDIOC_REQBUFS, unsafe.Pointer(&rb))
}

func (dev *device) mapMemory() error {
	if dev.mmap != nil {
		panic("v4l2 device: memory already mapped")
	}

	if err := dev.requestBuffers(dev.numBuffers); err != nil {
		return err
	}

	length, offset, err := dev.queryBuffer(0)
	if err != nil {
		return err
	}

	dev.mmap, err = unix.Mmap(
		dev.fd,
		int64(offset),
		int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	return err
}

func (dev *device) unmapMemory() error {
	if dev.mmap != nil {
		if err := unix.Munmap(dev.mmap); err != nil {
			return err
		}
		dev.mmap = nil
	}

	return dev.requestBuffers(0)
}

func (dev *device) enqueue(index int) error {
	qbuf := v4l2_buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
		index:  uint32(index),
	}
	return dev.ioctl(VIDIOC_QBUF, unsafe.Pointer(&qbuf))
}

func (dev *device) dequeue(index int) (int, error) {
	dqbuf := v4l2_buffer{
		typ:   V4L2_BUF_TYPE_VIDEO_CAPTURE,
		index: uint32(index),
	}
	err := dev.ioctl(VIDIOC_DQBUF, unsafe.Pointer(&dqbuf))
	return int(dqbuf.bytesused), err
}

func (dev *device) enableStream() error {
	typ := int32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return dev.ioctl(VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

func (dev *device) disableStream() error {
	// Disable stream (dequeues any outstanding buffers as well).
	typ := int32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return dev.ioctl(VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}

func (dev *device) setControl(id uint32, value int32) error {
	ctrl := v4l2_control{id: id, value: value}
	return dev.ioctl(VIDIOC_S_CTRL, unsafe.Pointer(&ctrl))
}

// setFlip mirrors the captured picture. Not all drivers expose the flip
// controls, so errors are left to the caller to interpret.
func (dev *device) setFlip(horizontal, vertical bool) error {
	var h, v int32
	if horizontal {
		h = 1
	}
	if vertical {
		v = 1
	}

	if err := dev.setControl(V4L2_CID_HFLIP, h); err != nil {
		return err
	}
	return dev.setControl(V4L2_CID_VFLIP, v)
}

func (dev *device) setPixelFormat(width, height, format uint32) error {
	pfmt := v4l2_pix_format{
		width:       width,
		height:      height,
		pixelformat: format,
		field:       V4L2_FIELD_ANY,
	}
	fmt := v4l2_format{
		typ: V4L2_BUF_TYPE_VIDEO_CAPTURE,
		fmt: pfmt.marshal(),
	}
	return dev.ioctl(VIDIOC_S_FMT, unsafe.Pointer(&fmt))
}

// Start video capture.
func (dev *device) start() error {
	if err := dev.mapMemory(); err != nil {
		return err
	}

	for i := 0; i < dev.numBuffers; i++ {
		if err := dev.enqueue(i); err != nil {
			return err
		}
	}

	return dev.enableStream()
}

// Stop video capture.
func (dev *device) stop() error {
	if err := dev.disableStream(); err != nil {
		return err
	}

	return dev.unmapMemory()
}

// readFrame copies the next frame from the driver into p. Blocks until data
// is available. Returns the frame size, which may exceed len(p) when the
// caller's buffer is too small, in which case the frame is truncated.
func (dev *device) readFrame(p []byte) (int, error) {
	if dev.mmap == nil {
		panic("v4l2 device: illegal state, capture not started")
	}

	n, err := dev.dequeue(0)
	if err != nil {
		if err == syscall.EINVAL {
			err = io.EOF
		}
		return 0, err
	}

	copy(p, dev.mmap[:n])

	if err := dev.enqueue(0); err != nil {
		return n, err
	}
	return n, nil
}
