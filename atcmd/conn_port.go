package atcmd

import (
	"errors"
	"net"
	"os"
	"time"
)

// ConnPort adapts a net.Conn to the prompt-read contract the Engine
// expects: Read returns zero bytes instead of blocking when nothing is
// pending, mirroring a serial port opened with a read timeout.
type ConnPort struct {
	conn net.Conn
}

func NewConnPort(conn net.Conn) *ConnPort {
	return &ConnPort{conn: conn}
}

func (cp *ConnPort) Read(p []byte) (int, error) {
	if err := cp.conn.SetReadDeadline(time.Now().Add(pollStep)); err != nil {
		return 0, err
	}
	n, err := cp.conn.Read(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (cp *ConnPort) Write(p []byte) (int, error) {
	if err := cp.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return 0, err
	}
	return cp.conn.Write(p)
}

func (cp *ConnPort) Close() error {
	return cp.conn.Close()
}
