// Package server implements the TCP server core: a connection-per-worker
// listener that reframes streamed bytes into newline-terminated packets,
// serializes them through a Backend, and replies with the backend's full
// current contents after every accepted packet.
package server

import (
	"context"
	"net"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
	"github.com/bsaravanan-aesd/aesdsocket/internal/logging"
	"github.com/bsaravanan-aesd/aesdsocket/internal/telemetry"
)

// RxChunk is the size of each recv() call, matching spec.md §4.E.
const RxChunk = 1024

// Config configures the server's listening endpoint.
type Config struct {
	// Addr is the address to listen on, e.g. ":9000".
	Addr string
}

// Server is the accept loop plus worker bookkeeping.
type Server struct {
	cfg      Config
	backend  Backend
	logger   *logging.Logger
	observer telemetry.Observer

	listener net.Listener
	wg       sync.WaitGroup

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a server bound to cfg, serving backend. A nil observer
// defaults to a no-op.
func New(cfg Config, backend Backend, logger *logging.Logger, observer telemetry.Observer) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = telemetry.NoOpObserver{}
	}
	return &Server{
		cfg:      cfg,
		backend:  backend,
		logger:   logger.WithTag("aesdsocket"),
		observer: observer,
		ready:    make(chan struct{}),
	}
}

// Ready returns a channel closed once the listener is bound, so callers
// (and tests using an ephemeral port) can learn the actual listen
// address before connecting.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener's address. Only valid after Ready is
// closed.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// listenConfig enables SO_REUSEADDR and SO_REUSEPORT on the listening
// socket before bind, matching spec.md §4.D.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					sockErr = err
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					sockErr = err
					return
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// Bind opens the listening socket without serving. Split out from
// ListenAndServe so a caller that wants to daemonize after a successful
// bind (spec.md's -d flag) can do so before the accept loop starts, and
// so a re-exec'd daemon child can instead take over an inherited
// listener via UseListener.
func (s *Server) Bind(ctx context.Context) error {
	lc := listenConfig()
	ln, err := lc.Listen(ctx, "tcp4", s.cfg.Addr)
	if err != nil {
		return acerr.Wrap("server.Bind", err)
	}
	s.listener = ln
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// UseListener adopts an already-bound listener instead of creating one,
// used by a re-exec'd daemon child that inherited the listening fd
// across the exec boundary.
func (s *Server) UseListener(ln net.Listener) {
	s.listener = ln
	s.readyOnce.Do(func() { close(s.ready) })
}

// ListenerFile returns the OS file backing the bound TCP listener, so a
// caller can pass it to a re-exec'd child via ExtraFiles. Only valid
// after Bind.
func (s *Server) ListenerFile() (*os.File, error) {
	tl, ok := s.listener.(*net.TCPListener)
	if !ok {
		return nil, acerr.New("server.ListenerFile", acerr.KindInvalid, "listener is not a *net.TCPListener")
	}
	return tl.File()
}

// Serve runs the accept loop against an already-bound listener (via
// Bind or UseListener) until ctx is canceled, at which point it closes
// the listener, waits for every live worker to finish, and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info("Caught signal, exiting")
		s.listener.Close()
	}()

	s.acceptLoop(ctx)
	s.wg.Wait()
	return nil
}

// ListenAndServe binds the listening endpoint and runs the accept loop
// until ctx is canceled, at which point it closes the listener, waits for
// every live worker to finish, and returns nil. A bind failure is
// returned directly and the caller should treat it as a fatal startup
// error. Equivalent to calling Bind then Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Bind(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			// Any other accept error on a live listener (e.g. transient
			// resource exhaustion) is logged and the loop continues;
			// only listener closure (handled above) ends it.
			s.logger.Warn("accept error", "error", err.Error())
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	w := newWorker(conn, s.backend, s.logger, s.observer)
	w.run(ctx)
}
