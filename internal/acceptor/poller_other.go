//go:build !linux

package acceptor

import "time"

// deadlinePoller is the portable substitution §5 allows for platforms
// without epoll: it just sleeps for the requested timeout and reports
// "ready", letting the caller's own Accept deadline decide whether a
// connection actually arrived. Observable semantics (1s cooperative
// poll against the stop flag) are preserved; only the underlying
// readiness primitive differs.
type deadlinePoller struct{}

func newPoller(fd int) (poller, error) {
	return &deadlinePoller{}, nil
}

func (deadlinePoller) Wait(timeoutMs int) (bool, error) {
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	return true, nil
}

func (deadlinePoller) Close() error { return nil }
