package relay

import (
	"fmt"
	"net"
	"time"

	winio "github.com/Microsoft/go-winio"
	"github.com/rs/zerolog"
)

func pipeName(name string, n int) string {
	// Local named pipes usually have a "\\." prefix:
	// https://docs.microsoft.com/en-us/windows/win32/ipc/pipe-names
	//
	// "\\?" just disables path parsing, which doesn't matter for pipes.
	return fmt.Sprintf(`\\?\pipe\%s-ipc-%d`, name, n)
}

// dialPipe opens the first of the daemon's named pipes that accepts a
// connection.
func dialPipe(name string, log zerolog.Logger) (*Client, error) {
	var err error

	// Pipe may be numbered from 0 to 9.
	for i := 0; i < 10; i++ {
		addr := pipeName(name, i)

		var conn net.Conn
		timeout := time.Second
		if conn, err = winio.DialPipe(addr, &timeout); err != nil {
			continue
		}

		log.Debug().Str("addr", addr).Msg("connected to relay daemon")
		return newClient(conn, log), nil
	}

	return nil, fmt.Errorf("got errors opening %s named pipe, last was: %w", name, err)
}

// Dial opens the named daemon's pipe and returns a client for sending
// messages.
func Dial(name string, log zerolog.Logger) (*Client, error) {
	return dialPipe(name, log)
}
