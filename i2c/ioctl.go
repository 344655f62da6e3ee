// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package i2c

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl numbers, from linux/i2c-dev.h.
const (
	funcsIoctl = 0x0705
	rdwrIoctl  = 0x0707
)

// message flags, from linux/i2c.h.
const (
	msgRead = 0x0001
)

// adapter functionality bits, from linux/i2c.h.
const (
	funcI2C = 0x00000001
)

// msg mirrors struct i2c_msg.
type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// rdwrData mirrors struct i2c_rdwr_ioctl_data.
type rdwrData struct {
	msgs  *msg
	nmsgs uint32
}

// getFuncs returns the functionality bitmap of the adapter.
func getFuncs(fd uintptr) (uint64, error) {
	var funcs uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(funcsIoctl),
		uintptr(unsafe.Pointer(&funcs)))
	if errno != 0 {
		return 0, errno
	}
	return funcs, nil
}

// transfer performs a single message transfer with the device at addr.
func transfer(fd uintptr, addr uint16, flags uint16, buf []byte) error {
	if len(buf) == 0 {
		return unix.EINVAL
	}
	m := msg{
		addr:  addr,
		flags: flags,
		len:   uint16(len(buf)),
		buf:   &buf[0],
	}
	data := rdwrData{msgs: &m, nmsgs: 1}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(rdwrIoctl),
		uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(buf)
	runtime.KeepAlive(&m)
	if errno != 0 {
		return errno
	}
	return nil
}
