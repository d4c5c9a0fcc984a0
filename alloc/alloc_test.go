// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersBalance(t *testing.T) {
	var c Counters
	assert.True(t, c.Balanced())

	c.Alloc(64)
	c.Alloc(128)
	assert.False(t, c.Balanced())
	assert.Equal(t, int64(2), c.Outstanding())
	assert.Equal(t, int64(192), c.OutstandingBytes())

	c.Free(64)
	assert.False(t, c.Balanced())

	c.Free(128)
	assert.True(t, c.Balanced())
	assert.Equal(t, int64(0), c.Outstanding())
}

func TestForReusesCounters(t *testing.T) {
	a := For("test-kind-a")
	b := For("test-kind-a")
	assert.Same(t, a, b)

	a.Alloc(16)
	assert.Equal(t, int64(1), b.Outstanding())
	a.Free(16)
}

func TestCheckBalanceReportsLeaks(t *testing.T) {
	leaker := For("test-kind-leaker")
	leaker.Alloc(32)
	defer leaker.Free(32)

	err := CheckBalance()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "test-kind-leaker")
}
