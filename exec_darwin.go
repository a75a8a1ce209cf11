// Completion: 100% - Darwin mapping flags with MAP_JIT
//go:build darwin

package main

import "golang.org/x/sys/unix"

// MAP_JIT is what lets a hardened-runtime process flip the same pages
// between writable and executable.
func execMapFlags() int {
	return unix.MAP_ANON | unix.MAP_PRIVATE | unix.MAP_JIT
}
