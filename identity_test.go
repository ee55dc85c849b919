package flock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoroutineID_DistinctAcrossGoroutines(t *testing.T) {
	self := goroutineID()
	require.NotZero(t, self)

	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = goroutineID()
	}()
	wg.Wait()

	require.NotZero(t, other)
	require.NotEqual(t, self, other)
}

func TestGoroutineID_StableWithinGoroutine(t *testing.T) {
	a := goroutineID()
	b := goroutineID()
	require.Equal(t, a, b)
}
