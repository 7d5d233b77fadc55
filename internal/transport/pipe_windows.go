//go:build windows

package transport

import (
	"net"

	"github.com/Microsoft/go-winio"
)

func listenPipe(name string) (net.Listener, error) {
	return winio.ListenPipe(name, nil)
}

func dialPipe(name string) (net.Conn, error) {
	return winio.DialPipe(name, nil)
}
