package crdt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLamportClock(t *testing.T) {
	clock := NewLamportClock()

	require.NotNil(t, clock)
	assert.Equal(t, int64(0), clock.GetTimestamp(), "Initial counter should be 0")
	assert.NotEmpty(t, clock.GetNodeID(), "NodeID should not be empty")
}

func TestNewLamportClockWithNodeID(t *testing.T) {
	clock := NewLamportClockWithNodeID("edge-7")

	require.NotNil(t, clock)
	assert.Equal(t, "edge-7", clock.GetNodeID())
	assert.Equal(t, int64(0), clock.GetTimestamp())
}

func TestLamportClock_Tick(t *testing.T) {
	clock := NewLamportClock()

	var previous int64
	for i := 0; i < 100; i++ {
		current := clock.Tick()
		assert.Greater(t, current, previous, "Tick should always increase")
		previous = current
	}

	assert.Equal(t, int64(100), clock.GetTimestamp())
}

func TestLamportClock_Update(t *testing.T) {
	tests := []struct {
		name            string
		localCounter    int64
		remoteTimestamp int64
		expectedResult  int64
	}{
		{
			name:            "remote timestamp greater than local",
			localCounter:    5,
			remoteTimestamp: 10,
			expectedResult:  11, // max(5, 10) + 1
		},
		{
			name:            "remote timestamp less than local",
			localCounter:    15,
			remoteTimestamp: 10,
			expectedResult:  16, // max(15, 10) + 1
		},
		{
			name:            "remote timestamp equal to local",
			localCounter:    10,
			remoteTimestamp: 10,
			expectedResult:  11,
		},
		{
			name:            "both are zero",
			localCounter:    0,
			remoteTimestamp: 0,
			expectedResult:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewLamportClock()
			clock.SetTimestamp(tt.localCounter)

			result := clock.Update(tt.remoteTimestamp)

			assert.Equal(t, tt.expectedResult, result)
			assert.Equal(t, tt.expectedResult, clock.GetTimestamp())
		})
	}
}

func TestLamportClock_ConcurrentTick(t *testing.T) {
	clock := NewLamportClock()
	iterations := 1000
	goroutines := 10

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				clock.Tick()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(goroutines*iterations), clock.GetTimestamp(),
		"Concurrent Tick calls should increment counter correctly")
}
