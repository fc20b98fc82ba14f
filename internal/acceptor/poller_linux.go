//go:build linux

package acceptor

import (
	"golang.org/x/sys/unix"
)

// epollPoller wraps a single epoll instance registered for EPOLLIN on
// one listening socket fd, giving the acceptor loop the level-triggered
// readiness wait spec §4.7 describes — grounded on golang.org/x/sys/unix,
// the same package Jigsaw-Code/outline-sdk depends on for its low-level
// socket option handling (x/sockopt).
type epollPoller struct {
	epfd int
	fd   int
}

func newPoller(fd int) (poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	return &epollPoller{epfd: epfd, fd: fd}, nil
}

func (p *epollPoller) Wait(timeoutMs int) (bool, error) {
	var events [1]unix.EpollEvent
	for {
		n, err := unix.EpollWait(p.epfd, events[:], timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, err
		}
		return n > 0, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
