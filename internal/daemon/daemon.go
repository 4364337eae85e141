// Package daemon detaches the process into the background after a
// successful bind, the Go-idiomatic stand-in for the original's
// fork-after-bind sequence. Go cannot safely fork() a multi-threaded
// runtime, so Daemonize instead re-execs the same binary into a
// detached child (new session, cwd /, stdio on /dev/null) and the
// parent exits 0, leaving the child holding the already-bound
// listener's file descriptor duplicated across the exec boundary.
package daemon

import (
	"net"
	"os"
	"os/exec"
	"syscall"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
)

// reexecEnv marks a re-exec'd child so it does not daemonize again.
const reexecEnv = "AESD_DAEMON_CHILD=1"

// listenerFD is the ExtraFiles index, offset by 3 (0,1,2 are stdio) at
// which the child finds the inherited listening socket.
const listenerFD = 3

// IsChild reports whether the current process is already the
// daemonized child, set by Daemonize before re-exec.
func IsChild() bool {
	for _, kv := range os.Environ() {
		if kv == reexecEnv {
			return true
		}
	}
	return false
}

// Daemonize re-execs the running binary into a detached child carrying
// the listener fd (passed as ExtraFiles[0], fd 3 in the child), then
// exits the parent process with status 0. It never returns in the
// parent; on failure to spawn the child it returns an error instead of
// exiting, leaving the caller's original listener intact.
func Daemonize(listenerFile *os.File) error {
	exe, err := os.Executable()
	if err != nil {
		return acerr.Wrap("daemon.Daemonize", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return acerr.Wrap("daemon.Daemonize", err)
	}
	defer devNull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), reexecEnv)
	cmd.Dir = "/"
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.ExtraFiles = []*os.File{listenerFile}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return acerr.Wrap("daemon.Daemonize", err)
	}

	os.Exit(0)
	return nil
}

// InheritedListener reconstructs the net.Listener passed across the
// exec boundary by Daemonize. Call only when IsChild reports true.
func InheritedListener() (net.Listener, error) {
	f := os.NewFile(uintptr(listenerFD), "listener")
	if f == nil {
		return nil, acerr.New("daemon.InheritedListener", acerr.KindFault, "no inherited listener fd")
	}
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, acerr.Wrap("daemon.InheritedListener", err)
	}
	f.Close()
	return ln, nil
}
