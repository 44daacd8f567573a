// Package relay implements the client side of the signaling/relay
// transport (§6.1): a small set of key-tagged messages exchanged with a
// relay server over a reliable, ordered, bidirectional connection.
package relay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/internal/binario"
	"github.com/kurodenkou/playtogether/playerid"
)

// Type tags a Message's wire variant.
type Type uint8

const (
	TypeCreateRoom Type = iota + 1
	TypeJoinRoom
	TypeRoomCreated
	TypeRoomJoined
	TypePlayerJoined
	TypePlayerLeft
	TypeHostChanged
	TypeStartGame
	TypeGameStarted
	TypeInput
	TypeRematch

	// TypeResync and TypeBye are supplemented beyond spec.md §6.1: a
	// full-state catch-up for a peer that fell silent past max-rollback,
	// and a graceful disconnect distinct from a hard transport close.
	TypeResync
	TypeBye
)

func (t Type) String() string {
	switch t {
	case TypeCreateRoom:
		return "create-room"
	case TypeJoinRoom:
		return "join-room"
	case TypeRoomCreated:
		return "room-created"
	case TypeRoomJoined:
		return "room-joined"
	case TypePlayerJoined:
		return "player-joined"
	case TypePlayerLeft:
		return "player-left"
	case TypeHostChanged:
		return "host-changed"
	case TypeStartGame:
		return "start-game"
	case TypeGameStarted:
		return "game-started"
	case TypeInput:
		return "input"
	case TypeRematch:
		return "rematch"
	case TypeResync:
		return "resync"
	case TypeBye:
		return "bye"
	default:
		return fmt.Sprintf("relay.Type(%d)", uint8(t))
	}
}

// ErrMalformedMessage wraps any decode failure. Per §7 ("Malformed inbound
// message... discard silently"), callers drop the message rather than
// propagate the error.
var ErrMalformedMessage = errors.New("relay: malformed message")

// Message is the single wire envelope for every relay exchange. Not every
// field is meaningful for every Type; see Encode below for which fields
// each variant actually carries on the wire.
type Message struct {
	Type       Type
	PlayerName string
	RoomID     string
	PlayerID   playerid.PlayerID
	HostID     playerid.PlayerID
	Players    []playerid.PlayerID
	Seed       uint32
	GameType   string
	SeedInputs []byte // ROM URL, core URL, etc., opaque to the engine
	Frame      int64
	InputBits  input.Bits
	Snapshot   []byte // resync payload
}

// Encode serializes msg to the wire format: a uint8 type tag followed by
// only the fields that type uses, each length-prefixed where variable.
func Encode(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	w := binario.NewWriter(&buf, binary.LittleEndian)

	err := w.WriteUint8(uint8(msg.Type))

	switch msg.Type {
	case TypeCreateRoom:
		err = errors.Join(err, writeString(w, msg.PlayerName))

	case TypeJoinRoom:
		err = errors.Join(err, writeString(w, msg.RoomID), writeString(w, msg.PlayerName))

	case TypeRoomCreated, TypeRoomJoined:
		err = errors.Join(err,
			writeString(w, msg.RoomID),
			writePlayerID(w, msg.PlayerID),
			writePlayerID(w, msg.HostID),
			writePlayerList(w, msg.Players),
		)

	case TypePlayerJoined, TypePlayerLeft:
		err = errors.Join(err,
			writePlayerID(w, msg.PlayerID),
			writePlayerList(w, msg.Players),
		)

	case TypeHostChanged:
		err = errors.Join(err, writePlayerID(w, msg.HostID))

	case TypeStartGame:
		err = errors.Join(err, writeString(w, msg.GameType), w.WriteBytes(msg.SeedInputs))

	case TypeGameStarted:
		err = errors.Join(err,
			writePlayerList(w, msg.Players),
			w.WriteUint32(msg.Seed),
			writeString(w, msg.GameType),
		)

	case TypeInput:
		err = errors.Join(err,
			w.WriteUint64(uint64(msg.Frame)),
			writePlayerID(w, msg.PlayerID),
			w.WriteUint16(uint16(msg.InputBits)),
		)

	case TypeRematch, TypeBye:
		// No payload.

	case TypeResync:
		err = errors.Join(err, w.WriteUint64(uint64(msg.Frame)), w.WriteBytes(msg.Snapshot))

	default:
		return nil, fmt.Errorf("relay: encode: unknown message type %d", msg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("relay: encode: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode parses the wire format produced by Encode. Any structural
// failure is wrapped in ErrMalformedMessage.
func Decode(b []byte) (Message, error) {
	r := binario.NewReader(bytes.NewReader(b), binary.LittleEndian)

	var typeByte uint8
	if err := r.ReadUint8To(&typeByte); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	msg := Message{Type: Type(typeByte)}

	var err error

	switch msg.Type {
	case TypeCreateRoom:
		msg.PlayerName, err = readString(r)

	case TypeJoinRoom:
		if msg.RoomID, err = readString(r); err == nil {
			msg.PlayerName, err = readString(r)
		}

	case TypeRoomCreated, TypeRoomJoined:
		if msg.RoomID, err = readString(r); err == nil {
			if msg.PlayerID, err = readPlayerID(r); err == nil {
				if msg.HostID, err = readPlayerID(r); err == nil {
					msg.Players, err = readPlayerList(r)
				}
			}
		}

	case TypePlayerJoined, TypePlayerLeft:
		if msg.PlayerID, err = readPlayerID(r); err == nil {
			msg.Players, err = readPlayerList(r)
		}

	case TypeHostChanged:
		msg.HostID, err = readPlayerID(r)

	case TypeStartGame:
		if msg.GameType, err = readString(r); err == nil {
			msg.SeedInputs, err = r.ReadBytes()
		}

	case TypeGameStarted:
		if msg.Players, err = readPlayerList(r); err == nil {
			if err = r.ReadUint32To(&msg.Seed); err == nil {
				msg.GameType, err = readString(r)
			}
		}

	case TypeInput:
		var frame uint64
		var bits uint16

		if err = r.ReadUint64To(&frame); err == nil {
			if msg.PlayerID, err = readPlayerID(r); err == nil {
				err = r.ReadUint16To(&bits)
			}
		}

		msg.Frame = int64(frame)
		msg.InputBits = input.Bits(bits)

	case TypeRematch, TypeBye:
		// No payload.

	case TypeResync:
		var frame uint64

		if err = r.ReadUint64To(&frame); err == nil {
			msg.Snapshot, err = r.ReadBytes()
		}

		msg.Frame = int64(frame)

	default:
		return Message{}, fmt.Errorf("%w: unknown type %d", ErrMalformedMessage, msg.Type)
	}

	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	return msg, nil
}

func writeString(w *binario.Writer, s string) error {
	return w.WriteBytes([]byte(s))
}

func readString(r *binario.Reader) (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func writePlayerID(w *binario.Writer, id playerid.PlayerID) error {
	return w.WriteRaw(id[:])
}

func readPlayerID(r *binario.Reader) (playerid.PlayerID, error) {
	var buf [playerid.Size]byte
	if err := r.ReadRaw(buf[:]); err != nil {
		return playerid.Nil, err
	}

	return playerid.PlayerID(buf), nil
}

func writePlayerList(w *binario.Writer, ids []playerid.PlayerID) error {
	if err := w.WriteUint32(uint32(len(ids))); err != nil {
		return err
	}

	for _, id := range ids {
		if err := writePlayerID(w, id); err != nil {
			return err
		}
	}

	return nil
}

func readPlayerList(r *binario.Reader) ([]playerid.PlayerID, error) {
	var n uint32
	if err := r.ReadUint32To(&n); err != nil {
		return nil, err
	}

	// Reject a declared count that can't possibly fit in what's left of
	// the message before allocating for it: a malformed frame with a
	// tiny body and a huge count must not force a large allocation ahead
	// of the read that would fail anyway.
	if remaining, ok := r.Remaining(); ok && int64(n)*playerid.Size > int64(remaining) {
		return nil, fmt.Errorf("%w: player list declares %d entries, only %d bytes remain",
			ErrMalformedMessage, n, remaining)
	}

	ids := make([]playerid.PlayerID, n)
	for i := range ids {
		id, err := readPlayerID(r)
		if err != nil {
			return nil, err
		}

		ids[i] = id
	}

	return ids, nil
}

// writeFramed writes b to w preceded by a uint32 length prefix, the
// transport-level framing that lets readFramed find message boundaries
// over a raw stream socket.
func writeFramed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}

	_, err := w.Write(b)
	return err
}

// maxMessageSize bounds a single frame to defend against a corrupt or
// hostile length prefix causing an unbounded allocation.
const maxMessageSize = 1 << 20

func readFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxMessageSize {
		return nil, fmt.Errorf("%w: frame size %d exceeds maximum %d", ErrMalformedMessage, n, maxMessageSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}
