// Package playerid defines the opaque, fixed-size player identifier used
// throughout the rollback engine and the relay wire protocol.
package playerid

import (
	"fmt"

	"github.com/google/uuid"
)

// Size is the wire width of a PlayerID in bytes.
const Size = 16

// PlayerID is an opaque stable identifier for one match participant. It is
// compared only for equality; the engine never interprets its bytes. Using
// a fixed-size array (backed by a UUID) rather than a string lets it embed
// directly in the binary wire format without a length prefix.
type PlayerID [Size]byte

// Nil is the zero PlayerID. It is never a valid participant id and is used
// as a sentinel for "no host assigned yet" etc.
var Nil PlayerID

// New generates a fresh random PlayerID, suitable for assigning to the
// local participant when a match starts.
func New() PlayerID {
	return PlayerID(uuid.New())
}

// Parse decodes a PlayerID from its canonical UUID text form, the inverse
// of String. The relay wire format carries ids as raw bytes, not text.
func Parse(s string) (PlayerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("playerid: invalid id %q: %w", s, err)
	}

	return PlayerID(u), nil
}

// String renders the canonical UUID text form.
func (id PlayerID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id PlayerID) IsNil() bool {
	return id == Nil
}

// PutBytes writes the id's 16 bytes to dst, which must have length >= Size.
// Byte order is irrelevant (the id is opaque) but fixed for wire stability.
func (id PlayerID) PutBytes(dst []byte) {
	copy(dst, id[:])
}

// FromBytes reads a PlayerID from the first Size bytes of src.
func FromBytes(src []byte) (PlayerID, error) {
	if len(src) < Size {
		return Nil, fmt.Errorf("playerid: short buffer: need %d bytes, got %d", Size, len(src))
	}

	var id PlayerID
	copy(id[:], src[:Size])

	return id, nil
}
