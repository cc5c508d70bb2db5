//go:build !windows

// Package rlimit raises the process file descriptor limit before large
// scans. Each scanner worker holds an SMB connection plus per-share
// session handles, so a wide scan against the default soft limit of
// 1024 descriptors fails with EMFILE long before the worker pool is
// saturated.
package rlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Maximize raises the soft RLIMIT_NOFILE to the hard cap and returns
// the resulting soft limit. The limit is left untouched if the soft
// value already equals the hard one.
func Maximize() (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, fmt.Errorf("failed to read file descriptor limit: %w", err)
	}

	if lim.Cur >= lim.Max {
		return lim.Cur, nil
	}

	lim.Cur = lim.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, fmt.Errorf("failed to raise file descriptor limit: %w", err)
	}

	return lim.Cur, nil
}
