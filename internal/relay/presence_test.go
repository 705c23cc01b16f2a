package relay

import (
	"sync"
	"testing"
)

func TestPresenceRegisterAndLookup(t *testing.T) {
	p := NewPresence()
	c := NewClient()

	p.Register(1, c)

	got, ok := p.Lookup(1)
	if !ok || got != c {
		t.Fatal("expected registered connection")
	}
	if _, ok := p.Lookup(2); ok {
		t.Fatal("lookup of unregistered participant must return none")
	}
}

func TestPresenceRegisterOverwrites(t *testing.T) {
	p := NewPresence()
	old := NewClient()
	replacement := NewClient()

	p.Register(1, old)
	p.Register(1, replacement)

	got, ok := p.Lookup(1)
	if !ok || got != replacement {
		t.Fatal("new connection must replace the previous mapping")
	}
	if p.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Count())
	}
}

func TestPresenceUnregister(t *testing.T) {
	p := NewPresence()
	c := NewClient()

	p.Register(1, c)
	p.Unregister(c)

	if _, ok := p.Lookup(1); ok {
		t.Fatal("lookup after unregister must return none")
	}

	// Unregistering again, or a connection that was never registered, is a no-op.
	p.Unregister(c)
	p.Unregister(NewClient())
}

func TestPresenceUnregisterIgnoresReplacedConnection(t *testing.T) {
	p := NewPresence()
	old := NewClient()
	replacement := NewClient()

	p.Register(1, old)
	p.Register(1, replacement)

	// The displaced connection disconnects later: the newer mapping stays.
	p.Unregister(old)

	got, ok := p.Lookup(1)
	if !ok || got != replacement {
		t.Fatal("unregister of a replaced connection must not remove the newer mapping")
	}
}

func TestPresenceConcurrentAccess(t *testing.T) {
	p := NewPresence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := NewClient()
			p.Register(id, c)
			p.Lookup(id)
			p.Unregister(c)
		}(int64(i % 10))
	}
	wg.Wait()
}
