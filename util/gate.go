package util

// A Gate limits concurrency. Every gate has a maximum number of goroutines
// to allow through at a time. Goroutines enter the gate by calling Enter(),
// and signal that they are done by calling Leave(). A gate may be shut down
// with Stop(), which causes every waiting and future Enter() to return false.
//
// The fetch routines use a gate to bound the number of simultaneous
// downloads.
type Gate struct {
	slots chan struct{}
	stop  chan struct{}
}

// NewGate returns a Gate which accepts at most n entries at a time.
func NewGate(n int) *Gate {
	return &Gate{
		slots: make(chan struct{}, n),
		stop:  make(chan struct{}),
	}
}

// Enter blocks the calling goroutine until there are fewer than n goroutines
// inside the gate, and then returns true. It returns false if the gate was
// stopped while waiting. It is safe to call this from multiple goroutines.
func (g *Gate) Enter() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	case <-g.stop:
		return false
	}
}

// Leave marks a goroutine outside the critical section. It is important to
// balance each successful Enter with a call to Leave. Enter and Leave do not
// need to be called from the same goroutine, necessarily.
func (g *Gate) Leave() {
	<-g.slots
}

// Stop shuts the gate. Goroutines blocked in Enter are released with a false
// return. Stop may only be called once.
func (g *Gate) Stop() {
	close(g.stop)
}
