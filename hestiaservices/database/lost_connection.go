package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var lostConnectionMessages = []string{
	"server has gone away",
	"no connection to the server",
	"lost connection",
	"is dead or not enabled",
	"error while sending",
	"decryption failed or bad record mac",
	"server closed the connection unexpectedly",
	"ssl connection has been closed unexpectedly",
	"error writing data to the connection",
	"resource deadlock avoided",
	"child connection forced to terminate due to client_idle_limit",
	"query_wait_timeout",
	"reset by peer",
	"physical connection is not usable",
	"tcp provider: error code 0x68",
	"tcp provider: error code 0x274c",
	"packets out of order. expected",
	"adaptive server connection failed",
	"communication link failure",
	"connection is no longer usable",
	"login timeout expired",
	"connection refused",
	"running with the --read-only option so it cannot execute this statement",
	"the connection is broken and recovery is not possible",
	"ssl: connection timed out",
	"temporary failure in name resolution",
	"ssl: broken pipe",
	"broken pipe",
	"the client was disconnected by the server because of inactivity",
	"could not translate host name",
	"ssl: operation timed out",
	"ssl: handshake timed out",
	"ssl error: sslv3 alert unexpected message",
	"unrecognized ssl error code",
	"network is unreachable",
	"server is shutting down",
	"failed to connect to",
	"channel connection is closed",
	"went away",
	"bad connection",
	"invalid connection",
	"unexpected eof",
}

// causedByLostConnection reports whether err means the handle is gone and the
// statement can be retried on a fresh one.
func causedByLostConnection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, needle := range lostConnectionMessages {
		if strings.Contains(message, needle) {
			return true
		}
	}

	return false
}
