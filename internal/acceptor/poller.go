package acceptor

// poller is the "level-triggered event interface over one descriptor"
// spec §4.7 calls for: Wait blocks up to timeoutMs milliseconds and
// reports whether the listening socket became readable (i.e. has a
// pending connection to Accept). Implementations live in
// poller_linux.go (real epoll, via golang.org/x/sys/unix) and
// poller_other.go (a portable fallback for non-Linux builds, matching
// the substitution §5 explicitly allows: "an implementer may
// substitute a single-threaded cooperative model ... provided the
// observable semantics ... are preserved").
type poller interface {
	Wait(timeoutMs int) (ready bool, err error)
	Close() error
}
