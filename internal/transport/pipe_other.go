//go:build !windows

package transport

import (
	"errors"
	"net"
)

var errPipeUnsupported = errors.New("named pipes are only available on windows")

func listenPipe(string) (net.Listener, error) {
	return nil, errPipeUnsupported
}

func dialPipe(string) (net.Conn, error) {
	return nil, errPipeUnsupported
}
