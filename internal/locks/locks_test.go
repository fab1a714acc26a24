package locks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "p1")
			if err != nil {
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLocalReleasesState(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "p1")
	require.NoError(t, err)
	release()

	// Entries are dropped once the last holder releases.
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

func TestLocalIndependentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := l.Acquire(ctx, "b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()
	<-done
}

func TestNopNeverBlocks(t *testing.T) {
	release, err := Nop{}.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	release()
	release2, err := Nop{}.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	release2()
}
