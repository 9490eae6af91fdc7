//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

func socketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "reclip.sock")
	}
	return filepath.Join(os.TempDir(), "reclip.sock")
}

// listenIPC removes a stale socket left by a crashed run, unless a live
// daemon still answers on it.
func listenIPC(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("another reclip daemon is listening on %s", path)
	}
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return l, nil
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
