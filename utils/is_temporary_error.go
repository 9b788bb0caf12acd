package utils

import "errors"

func IsTemporaryErr(err error) bool {
	var netErr interface{ Temporary() bool }
	if errors.As(err, &netErr) {
		return netErr.Temporary()
	}
	// consider all network-level issues as transient
	return true
}
