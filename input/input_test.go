package input

import (
	"testing"

	"github.com/kurodenkou/playtogether/playerid"
)

func TestMapEqual(t *testing.T) {
	p1, p2 := playerid.New(), playerid.New()

	a := Map{p1: 0x01, p2: 0x02}
	b := Map{p1: 0x01, p2: 0x02}
	c := Map{p1: 0x01, p2: 0x03}
	d := Map{p1: 0x01}

	if !a.Equal(b) {
		t.Fatalf("expected a == b")
	}

	if a.Equal(c) {
		t.Fatalf("expected a != c")
	}

	if a.Equal(d) {
		t.Fatalf("expected a != d (different size)")
	}
}

func TestMapClone(t *testing.T) {
	p1 := playerid.New()
	a := Map{p1: 0x07}
	b := a.Clone()
	b[p1] = 0x09

	if a[p1] != 0x07 {
		t.Fatalf("Clone mutated original map")
	}
}
