// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsUAVBarrierSameState(t *testing.T) {
	assert.True(t, NeedsUAVBarrier(ResourceStateUnorderedAccess, ResourceStateUnorderedAccess))
}

func TestNeedsUAVBarrierDifferentState(t *testing.T) {
	assert.False(t, NeedsUAVBarrier(ResourceStateUnorderedAccess, ResourceStateShaderResource))
	assert.False(t, NeedsUAVBarrier(ResourceStateCopyDest, ResourceStateCopySource))
}

func TestNeedsOwnershipTransfer(t *testing.T) {
	assert.True(t, NeedsOwnershipTransfer(QueueGraphics, QueueCompute))
	assert.False(t, NeedsOwnershipTransfer(QueueGraphics, QueueGraphics))
}

func TestValidateBarrierRejectsAcquireAndRelease(t *testing.T) {
	err := ValidateBarrier(Barrier{Acquire: true, Release: true})
	assert.ErrorIs(t, err, ErrState)
}

func TestValidateBarrierRejectsBeginAndEndOnly(t *testing.T) {
	err := ValidateBarrier(Barrier{BeginOnly: true, EndOnly: true})
	assert.ErrorIs(t, err, ErrState)
}

func TestStageMaskForStateUndefinedIsTop(t *testing.T) {
	assert.Equal(t, StageTop, StageMaskForState(ResourceStateUndefined, QueueGraphics))
}

func TestStageMaskForStateComputeQueueNarrowsShaderResource(t *testing.T) {
	mask := StageMaskForState(ResourceStateShaderResource, QueueCompute)
	assert.Equal(t, StageComputeShader, mask)
}
