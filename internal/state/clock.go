package state

import (
	"github.com/google/uuid"
)

func defaultNewID() string {
	return uuid.NewString()
}

// NewID generates annotation ids. Ids are random so annotations created on
// different machines for the same document never collide.
var NewID = defaultNewID
