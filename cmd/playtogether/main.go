// Command playtogether hosts or joins a peer-to-peer match over a relay
// server and drives it with the rollback scheduler. The relay fans input
// out to an arbitrary number of participants; the simulator is the
// built-in deterministic demo.
package main

import (
	"log"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
	"github.com/kurodenkou/playtogether/relay"
	"github.com/kurodenkou/playtogether/rollback"
	"github.com/kurodenkou/playtogether/simulator/demo"
	"github.com/kurodenkou/playtogether/ui"
)

const windowTitle = "Play Together"

func main() {
	o := parseOpts()

	client, err := relay.Dial(o.relayAddr)
	if err != nil {
		log.Fatalf("[ERROR] failed to connect to relay: %v", err)
	}

	client.Start()
	defer client.Close()

	if o.host {
		client.CreateRoom(o.playerName)
	} else {
		client.JoinRoom(o.roomID, o.playerName)
	}

	localID, roomID, hostID := awaitRoomJoin(client)
	log.Printf("[INFO] joined room %s as %s (host: %s)", roomID, localID, hostID)

	if o.host {
		log.Printf("[INFO] share this room id with other players: %s", roomID)
		awaitRoster(client, o.players)

		// The shared seed and final player ordering are decided by the
		// relay and broadcast in game-started (§6.2, §6.3); the host's
		// start-game only carries the game type.
		client.StartGame("demo", nil)
	}

	players, seed := awaitGameStart(client)
	log.Printf("[INFO] match starting: %d players, seed=%#x", len(players), seed)

	sim := demo.New(players, uint64(seed))

	cfg := rollback.Config{
		InputDelay:  o.inputDelay,
		MaxRollback: o.maxRollback,
		TargetFPS:   o.targetFPS,
		LocalPlayer: localID,
		Players:     players,
		Strict:      o.strict,
	}

	cb := rollback.Callbacks{
		ReadLocalInput: ui.ReadLocalInput,
		SendLocalInput: func(frame rollback.Frame, bits input.Bits) {
			client.SendInput(int64(frame), bits)
		},
		OnStats: func(stats rollback.Stats) {
			if stats.RollbackCount > 0 {
				log.Printf("[DEBUG] rollback: count=%d last-depth=%d max-depth=%d checksum=%08x",
					stats.RollbackCount, stats.LastRollbackDepth, stats.MaxRollbackDepth, stats.Checksum)
			}
		},
	}

	sched := rollback.New(cfg, sim, cb)
	sched.Start()

	win := ui.CreateWindow(sim, o.scale, o.verbose)
	defer win.Close()

	win.SetTitle(windowTitle)
	win.SetFrameRate(o.targetFPS)
	win.ShowFPS = o.showFPS

	muted := false
	win.MuteDelegate = func() {
		muted = !muted
		sim.SetAudioMuted(muted)
	}

	win.ResetDelegate = func() {
		client.SendRematch()
	}

	win.ResyncDelegate = func() {
		if frame, snapshot, ok := sched.RequestResync(); ok {
			client.SendResync(int64(frame), snapshot)
		}
	}

	pacer := rollback.NewPacer(rollback.NewRealClock(), o.targetFPS)

	for !win.ShouldClose() {
		drainRelayMessages(client, sched, sim)

		win.HandleHotKeys()

		pacer.Advance(func() {
			if !sched.ShouldStall() {
				sched.Tick()
			}
		}, func() {
			sim.Render()
			win.Present(sim)
		})
	}

	client.SendBye()
	sched.Stop()
}

// awaitRoomJoin blocks until the relay confirms room-created or
// room-joined, returning this participant's assigned id and the room's
// current id and host.
func awaitRoomJoin(client *relay.Client) (local playerid.PlayerID, roomID string, hostID playerid.PlayerID) {
	for msg := range client.Messages() {
		switch msg.Type {
		case relay.TypeRoomCreated, relay.TypeRoomJoined:
			return msg.PlayerID, msg.RoomID, msg.HostID
		}
	}

	log.Fatalf("[ERROR] relay connection closed before room join completed")
	return playerid.Nil, "", playerid.Nil
}

// awaitRoster blocks, as host, until the lobby roster reaches want
// participants.
func awaitRoster(client *relay.Client, want int) {
	if want <= 1 {
		return
	}

	count := 1

	for msg := range client.Messages() {
		if msg.Type == relay.TypePlayerJoined {
			count = len(msg.Players)
			log.Printf("[INFO] %d/%d players joined", count, want)

			if count >= want {
				return
			}
		}
	}
}

// awaitGameStart blocks until the relay announces game-started, which
// carries the final controller slot assignment and shared seed (§6.2,
// §6.3).
func awaitGameStart(client *relay.Client) ([]playerid.PlayerID, uint32) {
	for msg := range client.Messages() {
		if msg.Type == relay.TypeGameStarted {
			return msg.Players, msg.Seed
		}
	}

	log.Fatalf("[ERROR] relay connection closed before game-started")
	return nil, 0
}

// drainRelayMessages applies every relay message received since the last
// call without blocking, feeding input and lobby/match control events
// into the scheduler and simulator.
func drainRelayMessages(client *relay.Client, sched *rollback.Scheduler, sim *demo.Demo) {
	for {
		select {
		case msg := <-client.Messages():
			switch msg.Type {
			case relay.TypeInput:
				sched.ReceiveRemoteInput(rollback.Frame(msg.Frame), msg.PlayerID, msg.InputBits)

			case relay.TypePlayerLeft:
				log.Printf("[INFO] player left, roster now %d", len(msg.Players))

			case relay.TypeHostChanged:
				// Roster update only; no effect on the running simulation (§9).
				log.Printf("[INFO] host changed to %s", msg.HostID)

			case relay.TypeRematch:
				sim.Reset()
				sched.Start()

			case relay.TypeResync:
				sched.ApplyResync(rollback.Frame(msg.Frame), msg.Snapshot)

			case relay.TypeBye:
				log.Printf("[INFO] a peer said goodbye")
			}
		default:
			return
		}
	}
}
