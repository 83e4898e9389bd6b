package util

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRandomSubset(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 50; i++ {
		s := RandomSubset(7, 4)
		c.Assert(s, qt.HasLen, 4)
		seen := map[int]bool{}
		for _, v := range s {
			c.Assert(v >= 1 && v <= 7, qt.IsTrue, qt.Commentf("value %d", v))
			c.Assert(seen[v], qt.IsFalse)
			seen[v] = true
		}
	}
	c.Assert(RandomSubset(3, 3), qt.HasLen, 3)
	c.Assert(RandomSubset(3, 0), qt.HasLen, 0)
	c.Assert(func() { RandomSubset(2, 3) }, qt.PanicMatches, "invalid subset size.*")
}

func TestRandomInt(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 100; i++ {
		v := RandomInt(3, 6)
		c.Assert(v >= 3 && v < 6, qt.IsTrue, qt.Commentf("value %d", v))
	}
}
