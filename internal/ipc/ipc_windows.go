//go:build windows

package ipc

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

const pipeName = `\\.\pipe\reclip`

func socketPath() string { return pipeName }

// The pipe is restricted to the owner and SYSTEM.
const pipeSDDL = "D:P(A;;GA;;;OW)(A;;GA;;;SY)"

func listenIPC(path string) (net.Listener, error) {
	return winio.ListenPipe(path, &winio.PipeConfig{SecurityDescriptor: pipeSDDL})
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}
