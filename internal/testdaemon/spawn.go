package testdaemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// RealDaemon is a handle to an out-of-process p2pd binary, for opt-in
// integration tests that exercise the real daemon instead of the
// in-process fake. Tests gate on its availability with LookPath; it is
// not used by the default test suite.
type RealDaemon struct {
	cmd         *exec.Cmd
	ControlSock string
	done        chan error
}

// SpawnReal starts the p2pd binary found on $PATH (or at binPath if
// non-empty), pointed at a fresh control socket under dir. It waits up
// to the given timeout for the socket file to appear before returning.
func SpawnReal(ctx context.Context, binPath, dir string, timeout time.Duration) (*RealDaemon, error) {
	if binPath == "" {
		var err error
		binPath, err = exec.LookPath("p2pd")
		if err != nil {
			return nil, fmt.Errorf("testdaemon: p2pd binary not found: %w", err)
		}
	}

	sock := dir + "/real-daemon.sock"
	cmd := exec.CommandContext(ctx, binPath, "-sock", sock)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("testdaemon: start p2pd: %w", err)
	}

	rd := &RealDaemon{cmd: cmd, ControlSock: sock, done: make(chan error, 1)}
	go func() { rd.done <- cmd.Wait() }()

	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(sock); err == nil {
			return rd, nil
		}
		if time.Now().After(deadline) {
			rd.Close()
			return nil, fmt.Errorf("testdaemon: p2pd control socket did not appear within %s", timeout)
		}
		select {
		case err := <-rd.done:
			return nil, fmt.Errorf("testdaemon: p2pd exited before binding its socket: %w", err)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Close signals the daemon process to stop and waits for it to exit.
func (rd *RealDaemon) Close() error {
	if rd.cmd.Process != nil {
		_ = rd.cmd.Process.Kill()
	}
	return <-rd.done
}
