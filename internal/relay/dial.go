//go:build !windows

package relay

import (
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
)

// socketPath constructs a path to a daemon IPC socket.
//
// A socket may not actually exist at the returned path.
func socketPath(tmpDir, name string, n int) string {
	return fmt.Sprintf("%s/%s-ipc-%d", tmpDir, name, n)
}

// dialIn opens the first of the daemon's sockets under tmpDir that accepts a
// connection.
func dialIn(tmpDir, name string, log zerolog.Logger) (*Client, error) {
	var err error

	// Socket may be numbered from 0 to 9.
	for i := 0; i < 10; i++ {
		addr := socketPath(tmpDir, name, i)

		var conn net.Conn
		// Go's "unix" network is equivalent to AF_UNIX/SOCK_STREAM.
		if conn, err = net.Dial("unix", addr); err != nil {
			continue
		}

		log.Debug().Str("addr", addr).Msg("connected to relay daemon")
		return newClient(conn, log), nil
	}

	return nil, fmt.Errorf("got errors opening %s sockets, last was: %w", name, err)
}

// Dial opens the named daemon's socket in the system temporary directory and
// returns a client for sending messages.
func Dial(name string, log zerolog.Logger) (*Client, error) {
	return dialIn(os.TempDir(), name, log)
}
