package main

import (
	"flag"
	"fmt"
	"os"
)

// opts holds the CLI-configurable parameters for one run of the client.
type opts struct {
	relayAddr   string
	roomID      string
	playerName  string
	host        bool
	players     int
	scale       int
	targetFPS   int
	inputDelay  int
	maxRollback int
	strict      bool
	showFPS     bool
	verbose     bool
}

func parseOpts() *opts {
	o := &opts{}

	flag.StringVar(&o.relayAddr, "relay", "localhost:7643", "relay server address")
	flag.StringVar(&o.roomID, "room", "", "room id to join (omit to host a new room)")
	flag.StringVar(&o.playerName, "name", "player", "display name announced to the relay")
	flag.IntVar(&o.players, "players", 2, "number of participants to wait for before starting (host only)")
	flag.IntVar(&o.scale, "scale", 3, "window scale factor")
	flag.IntVar(&o.targetFPS, "fps", 60, "simulation rate in frames per second")
	flag.IntVar(&o.inputDelay, "input-delay", 2, "frames of artificial local input delay")
	flag.IntVar(&o.maxRollback, "max-rollback", 8, "maximum frames the engine may rewind")
	flag.BoolVar(&o.strict, "strict", false, "panic on a conflicting duplicate confirmed input instead of discarding it")
	flag.BoolVar(&o.showFPS, "show-fps", true, "overlay the render rate")
	flag.BoolVar(&o.verbose, "verbose", false, "enable raylib trace logging")

	flag.Parse()

	o.host = o.roomID == ""

	if o.playerName == "" {
		fmt.Fprintln(os.Stderr, "playtogether: -name must not be empty")
		os.Exit(1)
	}

	return o
}
