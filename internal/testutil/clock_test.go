package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch2024 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClock_StartsAtStart(t *testing.T) {
	clock := NewStepClock(epoch2024, time.Second)
	assert.Equal(t, epoch2024, clock.Peek())
	assert.Equal(t, epoch2024, clock.Now())
}

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(epoch2024, time.Minute)

	clock.Now()
	assert.Equal(t, epoch2024.Add(time.Minute), clock.Now())
	assert.Equal(t, epoch2024.Add(2*time.Minute), clock.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch2024, time.Hour)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, epoch2024, clock.Now())
}

func TestStepClock_ZeroStepIsFixed(t *testing.T) {
	clock := NewStepClock(epoch2024, 0)
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestStepClock_Concurrent(t *testing.T) {
	clock := NewStepClock(epoch2024, time.Second)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, epoch2024.Add(100*time.Second), clock.Peek())
}
