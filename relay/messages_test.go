package relay

import (
	"errors"
	"testing"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	return got
}

func TestCreateRoomRoundTrip(t *testing.T) {
	got := roundTrip(t, Message{Type: TypeCreateRoom, PlayerName: "alice"})

	if got.Type != TypeCreateRoom || got.PlayerName != "alice" {
		t.Fatalf("got %+v, want create-room/alice", got)
	}
}

func TestJoinRoomRoundTrip(t *testing.T) {
	got := roundTrip(t, Message{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "bob"})

	if got.RoomID != "room-1" || got.PlayerName != "bob" {
		t.Fatalf("got %+v, want room-1/bob", got)
	}
}

func TestRoomCreatedRoundTrip(t *testing.T) {
	a, b := playerid.New(), playerid.New()

	got := roundTrip(t, Message{
		Type:     TypeRoomCreated,
		RoomID:   "room-2",
		PlayerID: a,
		HostID:   a,
		Players:  []playerid.PlayerID{a, b},
	})

	if got.RoomID != "room-2" || got.PlayerID != a || got.HostID != a {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}

	if len(got.Players) != 2 || got.Players[0] != a || got.Players[1] != b {
		t.Fatalf("player list mismatch: %v", got.Players)
	}
}

func TestPlayerJoinedRoundTrip(t *testing.T) {
	a, b := playerid.New(), playerid.New()

	got := roundTrip(t, Message{
		Type:     TypePlayerJoined,
		PlayerID: b,
		Players:  []playerid.PlayerID{a, b},
	})

	if got.PlayerID != b || len(got.Players) != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestHostChangedRoundTrip(t *testing.T) {
	h := playerid.New()
	got := roundTrip(t, Message{Type: TypeHostChanged, HostID: h})

	if got.HostID != h {
		t.Fatalf("host id mismatch: got %s want %s", got.HostID, h)
	}
}

func TestStartGameRoundTrip(t *testing.T) {
	got := roundTrip(t, Message{
		Type:       TypeStartGame,
		GameType:   "demo",
		SeedInputs: []byte("rom-url=https://example.invalid/game.rom"),
	})

	if got.GameType != "demo" || string(got.SeedInputs) != "rom-url=https://example.invalid/game.rom" {
		t.Fatalf("got %+v", got)
	}
}

func TestGameStartedRoundTrip(t *testing.T) {
	a, b := playerid.New(), playerid.New()

	got := roundTrip(t, Message{
		Type:     TypeGameStarted,
		Players:  []playerid.PlayerID{a, b},
		Seed:     0x1234abcd,
		GameType: "demo",
	})

	if got.Seed != 0x1234abcd || got.GameType != "demo" || len(got.Players) != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestInputRoundTrip(t *testing.T) {
	p := playerid.New()

	got := roundTrip(t, Message{
		Type:      TypeInput,
		Frame:     123456,
		PlayerID:  p,
		InputBits: input.Bits(0xBEEF),
	})

	if got.Frame != 123456 || got.PlayerID != p || got.InputBits != 0xBEEF {
		t.Fatalf("got %+v", got)
	}
}

func TestRematchRoundTrip(t *testing.T) {
	got := roundTrip(t, Message{Type: TypeRematch})

	if got.Type != TypeRematch {
		t.Fatalf("got type %v, want rematch", got.Type)
	}
}

func TestByeRoundTrip(t *testing.T) {
	got := roundTrip(t, Message{Type: TypeBye})

	if got.Type != TypeBye {
		t.Fatalf("got type %v, want bye", got.Type)
	}
}

func TestResyncRoundTrip(t *testing.T) {
	snap := []byte{1, 2, 3, 4, 5}

	got := roundTrip(t, Message{Type: TypeResync, Frame: 500, Snapshot: snap})

	if got.Frame != 500 || string(got.Snapshot) != string(snap) {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeEmptyBufferIsMalformed(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Decode(nil) = %v, want ErrMalformedMessage", err)
	}
}

func TestDecodeUnknownTypeIsMalformed(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Decode with unknown type = %v, want ErrMalformedMessage", err)
	}
}

func TestDecodeTruncatedMessageIsMalformed(t *testing.T) {
	b, err := Encode(Message{Type: TypeJoinRoom, RoomID: "room-1", PlayerName: "bob"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = Decode(b[:len(b)-2])
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Decode on truncated buffer = %v, want ErrMalformedMessage", err)
	}
}

func TestTypeStringUnknown(t *testing.T) {
	if got := Type(200).String(); got == "" {
		t.Fatalf("String() on unknown type returned empty string")
	}
}
