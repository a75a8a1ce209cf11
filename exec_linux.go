// Completion: 100% - Linux mapping flags
//go:build linux

package main

import "golang.org/x/sys/unix"

func execMapFlags() int {
	return unix.MAP_ANON | unix.MAP_PRIVATE
}
