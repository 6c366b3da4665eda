package storage

import (
	"fmt"
	"time"
)

// Direction tells whether a payload was produced here or received
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Entry is a journaled payload. Only ciphertext is stored.
type Entry struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Payload   string    `json:"payload"`
	Direction Direction `json:"direction"`
	Created   time.Time `json:"created"`
	Size      int       `json:"size"`
}

// FormatID renders a bucket sequence number as a sortable entry ID
func FormatID(seq uint64) string {
	return fmt.Sprintf("%08x", seq)
}

// ShortPayload returns the payload cut to n characters for listings
func (e Entry) ShortPayload(n int) string {
	if len(e.Payload) <= n {
		return e.Payload
	}
	return e.Payload[:n] + "..."
}
