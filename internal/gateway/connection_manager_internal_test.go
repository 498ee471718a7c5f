package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The write pump and the pong handler update ping tracking from different
// goroutines; both must go through the manager lock.
func TestConnectionPingTrackingIsSynchronized(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{
		ID:      "c1",
		Send:    make(chan []byte, 1),
		Manager: cm,
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				conn.touchPing()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			cm.Stats()
		}
	}()
	wg.Wait()

	cm.mu.RLock()
	last := conn.LastPing
	cm.mu.RUnlock()
	assert.False(t, last.IsZero())
	assert.WithinDuration(t, time.Now(), last, time.Minute)
}
