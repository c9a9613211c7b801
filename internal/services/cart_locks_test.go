package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocks(t *testing.T) {
	t.Run("Serializes Holders Of The Same User", func(t *testing.T) {
		// Arrange
		locks := newUserLocks()

		var wg sync.WaitGroup
		counter := 0

		// Act: 50 goroutines increment a plain int under the user's lock.
		for range 50 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				unlock := locks.lock(1)
				defer unlock()

				counter++
			}()
		}
		wg.Wait()

		// Assert
		assert.Equal(t, 50, counter)
	})

	t.Run("Entries Are Dropped After The Last Release", func(t *testing.T) {
		// Arrange
		locks := newUserLocks()

		var wg sync.WaitGroup

		// Act: many users lock and release concurrently.
		for userID := int64(1); userID <= 20; userID++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range 5 {
					unlock := locks.lock(userID)
					unlock()
				}
			}()
		}
		wg.Wait()

		// Assert: no entry outlives its holders.
		locks.mu.Lock()
		defer locks.mu.Unlock()
		assert.Empty(t, locks.locks)
	})

	t.Run("Entry Survives While Another Holder Waits", func(t *testing.T) {
		// Arrange: a second holder registers before the first releases; the
		// entry must not be dropped out from under it.
		locks := newUserLocks()
		first := locks.lock(1)

		done := make(chan struct{})
		go func() {
			unlock := locks.lock(1)
			unlock()
			close(done)
		}()

		// The waiter is registered once holders reaches 2.
		for {
			locks.mu.Lock()
			entry, ok := locks.locks[1]
			waiting := ok && entry.holders == 2
			locks.mu.Unlock()

			if waiting {
				break
			}

			time.Sleep(time.Millisecond)
		}

		// Act
		first()
		<-done

		// Assert
		locks.mu.Lock()
		defer locks.mu.Unlock()
		assert.Empty(t, locks.locks)
	})
}
