package main

import (
	"crypto/rand"
	"fmt"
)

const (
	genIDShort  = 7
	genIDMinLen = 4
)

// newLocalID identifies a generation in the local history. AIHorde job
// IDs are discarded once the job completes, so history gets its own.
func newLocalID() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}
