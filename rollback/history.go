package rollback

import (
	"errors"
	"fmt"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/internal/ringbuf"
	"github.com/kurodenkou/playtogether/playerid"
)

// ErrConflictingInput is returned when a confirmed input arrives for a
// (frame, player) pair that already holds a different value. Per §3 the
// confirmed-input store is monotonic: the network layer must never
// redeliver a different value for the same (frame, player). Receiving one
// anyway is a protocol violation (§7).
var ErrConflictingInput = errors.New("rollback: conflicting confirmed input for frame/player")

func frameKey(f Frame) uint64 {
	return uint64(f)
}

// ConfirmedStore holds the authoritative input received or produced for
// each (frame, player) pair (§3, "Confirmed-input store"). Entries are
// built up incrementally: a frame's map may contain only some of the
// match's players until the rest of their inputs arrive.
type ConfirmedStore struct {
	ring *ringbuf.FrameRing[input.Map]
}

// NewConfirmedStore creates a store able to hold at least capacity
// distinct frames at once.
func NewConfirmedStore(capacity int) *ConfirmedStore {
	return &ConfirmedStore{ring: ringbuf.New[input.Map](capacity)}
}

// Set records bits as the confirmed input for player at frame. If an
// entry already exists for (frame, player), it must be byte-identical;
// otherwise ErrConflictingInput is returned and the store is left
// unmodified.
func (s *ConfirmedStore) Set(frame Frame, player playerid.PlayerID, bits input.Bits) error {
	m, ok := s.ring.Lookup(frameKey(frame))

	if ok {
		if existing, present := m[player]; present {
			if existing == bits {
				return nil
			}

			return fmt.Errorf("%w: frame=%d player=%s existing=%#x new=%#x",
				ErrConflictingInput, frame, player, existing, bits)
		}
	} else {
		m = make(input.Map, 2)
	}

	m[player] = bits
	s.ring.Insert(frameKey(frame), m)

	return nil
}

// Get returns the confirmed input map for frame, which may be partial
// (missing some players) or absent entirely.
func (s *ConfirmedStore) Get(frame Frame) (input.Map, bool) {
	return s.ring.Lookup(frameKey(frame))
}

// GetPlayer returns the confirmed input for a single player at frame.
func (s *ConfirmedStore) GetPlayer(frame Frame, player playerid.PlayerID) (input.Bits, bool) {
	m, ok := s.ring.Lookup(frameKey(frame))
	if !ok {
		return 0, false
	}

	bits, ok := m[player]
	return bits, ok
}

// PruneBelow removes every frame's entry below threshold.
func (s *ConfirmedStore) PruneBelow(threshold Frame) {
	s.ring.PruneBelow(frameKey(threshold))
}

// Len returns the number of frames with at least one confirmed entry.
func (s *ConfirmedStore) Len() int {
	return s.ring.Len()
}

// UsedStore records the input map actually fed to the simulator when a
// frame was stepped (§3, "Used-input store"), which may contain
// predictions later superseded by confirmed values on rollback.
type UsedStore struct {
	ring *ringbuf.FrameRing[input.Map]
}

// NewUsedStore creates a store able to hold at least capacity distinct
// frames at once.
func NewUsedStore(capacity int) *UsedStore {
	return &UsedStore{ring: ringbuf.New[input.Map](capacity)}
}

// Set stores (overwriting any prior entry) the input map used for frame.
func (s *UsedStore) Set(frame Frame, m input.Map) {
	s.ring.Insert(frameKey(frame), m)
}

// Get returns the input map used for frame, if any.
func (s *UsedStore) Get(frame Frame) (input.Map, bool) {
	return s.ring.Lookup(frameKey(frame))
}

// PruneBelow removes every frame's entry below threshold.
func (s *UsedStore) PruneBelow(threshold Frame) {
	s.ring.PruneBelow(frameKey(threshold))
}

// Len returns the number of frames with a used-input entry.
func (s *UsedStore) Len() int {
	return s.ring.Len()
}

// StateStore holds opaque pre-step state snapshots, one per frame (§3,
// "State-history store"). The snapshot for frame f is captured before
// stepping f: it represents the state from which stepping f produces the
// state at frame f+1.
type StateStore struct {
	ring *ringbuf.FrameRing[[]byte]
}

// NewStateStore creates a store able to hold at least capacity distinct
// frames at once.
func NewStateStore(capacity int) *StateStore {
	return &StateStore{ring: ringbuf.New[[]byte](capacity)}
}

// Set stores (overwriting any prior entry) the snapshot for frame.
func (s *StateStore) Set(frame Frame, snapshot []byte) {
	s.ring.Insert(frameKey(frame), snapshot)
}

// Get returns the snapshot stored for frame, if any.
func (s *StateStore) Get(frame Frame) ([]byte, bool) {
	return s.ring.Lookup(frameKey(frame))
}

// PruneBelow removes every frame's entry below threshold.
func (s *StateStore) PruneBelow(threshold Frame) {
	s.ring.PruneBelow(frameKey(threshold))
}

// Len returns the number of frames with a stored snapshot.
func (s *StateStore) Len() int {
	return s.ring.Len()
}

// History bundles the three parallel frame-keyed stores the engine
// requires (§4.2): confirmed inputs, used inputs, and state snapshots. All
// three share the same capacity, computed by the scheduler as
// max-rollback + input-delay + 2 (§3, "Bounded memory").
type History struct {
	Confirmed *ConfirmedStore
	Used      *UsedStore
	States    *StateStore
}

// NewHistory creates a History whose stores can each hold at least
// capacity distinct frames at once.
func NewHistory(capacity int) *History {
	return &History{
		Confirmed: NewConfirmedStore(capacity),
		Used:      NewUsedStore(capacity),
		States:    NewStateStore(capacity),
	}
}

// PruneBelow removes every entry below threshold from all three stores
// (§4.4.6).
func (h *History) PruneBelow(threshold Frame) {
	h.Confirmed.PruneBelow(threshold)
	h.Used.PruneBelow(threshold)
	h.States.PruneBelow(threshold)
}
