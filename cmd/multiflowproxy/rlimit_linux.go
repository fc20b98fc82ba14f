//go:build linux

package main

import "golang.org/x/sys/unix"

// raiseFileLimit is the process-wide descriptor-limit tuning spec §1
// marks an external collaborator: the core never calls this, main does,
// once, at startup.
func raiseFileLimit(n uint64) error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return err
	}
	if rlim.Cur >= n {
		return nil
	}
	rlim.Cur = n
	if rlim.Max < n {
		rlim.Max = n
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim)
}
