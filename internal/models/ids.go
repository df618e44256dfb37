package models

import (
	"strconv"
	"time"
)

const clientIDPrefix = "c"

// NewClientID mints a provisional id from the current time. Server ids are
// plain decimal numbers, so the prefix keeps the two spaces apart.
func NewClientID(now time.Time) string {
	return clientIDPrefix + strconv.FormatInt(now.UnixNano(), 36)
}

// ServerID parses a server-assigned id. ok is false for client-minted ids.
func ServerID(id string) (n int64, ok bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatServerID renders a numeric id the way it travels on the wire.
func FormatServerID(n int64) string {
	return strconv.FormatInt(n, 10)
}
