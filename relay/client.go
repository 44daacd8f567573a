package relay

import (
	"fmt"
	"net"

	"github.com/kurodenkou/playtogether/input"
)

// Client is a connection to a relay server: a channel-based reader/writer
// pair over a single net.Conn. Every participant dials the same relay
// server, which fans input out to the rest of the room.
type Client struct {
	conn   net.Conn
	toSend chan Message
	toRecv chan Message
	stop   chan struct{}
}

// Dial connects to a relay server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay: failed to connect to %s: %w", addr, err)
	}

	return newClient(conn), nil
}

func newClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		toSend: make(chan Message, 1000),
		toRecv: make(chan Message, 1000),
		stop:   make(chan struct{}),
	}
}

// Start launches the reader and writer goroutines. Messages() and Send
// are only meaningful after Start has been called.
func (c *Client) Start() {
	go c.startReader()
	go c.startWriter()
}

// Close stops both goroutines and closes the underlying connection.
func (c *Client) Close() error {
	select {
	case <-c.stop:
		// already closed
	default:
		close(c.stop)
	}

	return c.conn.Close()
}

// Messages returns the channel of messages received from the relay.
// Malformed frames are discarded before reaching this channel (§7).
func (c *Client) Messages() <-chan Message {
	return c.toRecv
}

// Send queues msg for transmission. Never blocks the caller on network
// I/O; the writer goroutine drains the channel independently.
func (c *Client) Send(msg Message) {
	select {
	case c.toSend <- msg:
	case <-c.stop:
	}
}

func (c *Client) startWriter() {
	for {
		select {
		case <-c.stop:
			return
		case msg := <-c.toSend:
			b, err := Encode(msg)
			if err != nil {
				// An encode failure here is a programming error (a
				// Message built with fields its Type doesn't use), not a
				// transport problem; surfacing it by panic matches the
				// teacher's treatment of write failures as fatal.
				panic(fmt.Errorf("relay: %w", err))
			}

			if err := writeFramed(c.conn, b); err != nil {
				c.disconnect()
				return
			}
		}
	}
}

func (c *Client) startReader() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		b, err := readFramed(c.conn)
		if err != nil {
			c.disconnect()
			return
		}

		msg, err := Decode(b)
		if err != nil {
			// Malformed inbound message: discard silently (§7).
			continue
		}

		select {
		case c.toRecv <- msg:
		case <-c.stop:
			return
		}
	}
}

// disconnect signals Stop exactly once, whether the reader or the writer
// goroutine observes the transport failure first.
func (c *Client) disconnect() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// CreateRoom requests a new room under playerName.
func (c *Client) CreateRoom(playerName string) {
	c.Send(Message{Type: TypeCreateRoom, PlayerName: playerName})
}

// JoinRoom requests to join an existing room.
func (c *Client) JoinRoom(roomID, playerName string) {
	c.Send(Message{Type: TypeJoinRoom, RoomID: roomID, PlayerName: playerName})
}

// StartGame is sent by the host to begin the match.
func (c *Client) StartGame(gameType string, seedInputs []byte) {
	c.Send(Message{Type: TypeStartGame, GameType: gameType, SeedInputs: seedInputs})
}

// SendInput relays a confirmed local input for frame to the rest of the
// room (§6.1, "input").
func (c *Client) SendInput(frame int64, bits input.Bits) {
	c.Send(Message{Type: TypeInput, Frame: frame, InputBits: bits})
}

// SendRematch requests (as host) or acknowledges (as any participant) a
// rematch of the current room.
func (c *Client) SendRematch() {
	c.Send(Message{Type: TypeRematch})
}

// SendResync pushes a fresh authoritative checkpoint, typically to a peer
// whose receive watermark has fallen silent past max-rollback (§9).
func (c *Client) SendResync(frame int64, snapshot []byte) {
	c.Send(Message{Type: TypeResync, Frame: frame, Snapshot: snapshot})
}

// SendBye announces a graceful departure, distinct from a hard transport
// close (§9, "Bye / graceful disconnect").
func (c *Client) SendBye() {
	c.Send(Message{Type: TypeBye})
}
