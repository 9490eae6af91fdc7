// Package ipc provides the local channel that reclip sub-commands use to talk
// to a running daemon: a Unix domain socket, or a named pipe on Windows.
package ipc

import (
	"context"
	"net"
	"os"
	"time"
)

// EnvSocket overrides the socket path.
const EnvSocket = "RECLIP_SOCKET"

// SocketPath returns the path the daemon listens on.
//
//   - Linux:   $XDG_RUNTIME_DIR/reclip.sock, else $TMPDIR/reclip.sock
//   - macOS:   $TMPDIR/reclip.sock
//   - Windows: \\.\pipe\reclip
func SocketPath() string {
	if s := os.Getenv(EnvSocket); s != "" {
		return s
	}
	return socketPath()
}

// Listen opens the daemon side of the channel at path.
func Listen(path string) (net.Listener, error) {
	return listenIPC(path)
}

// Dial connects to the daemon at path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	return dialIPC(ctx, path)
}

// IsRunning reports whether a daemon answers at path. No data is exchanged.
func IsRunning(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c, err := Dial(ctx, path)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
