// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

// PipelineStageMask is a backend-neutral set of pipeline stages a
// barrier must wait at/signal from. Concrete backends convert it to
// their own stage-mask type (vk.PipelineStageFlags, D3D12_BARRIER_SYNC)
// in their conv.go.
type PipelineStageMask uint32

const (
	StageTop PipelineStageMask = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottom
	StageHost
	StageAllGraphics
	StageAllCommands
)

// StageMaskForState returns the pipeline stages a resource in the
// given state is read or written by. It is the backend-neutral half of
// spec.md §4.5's barrier translation: concrete backends combine this
// with queue type to compute their own access/layout pair. On a
// transfer queue every state other than Undefined maps to
// StageAllCommands, and so does, on a compute queue, any state with a
// graphics-only bit (render target, depth, vertex/index input, present).
func StageMaskForState(s ResourceState, queue QueueType) PipelineStageMask {
	if s != ResourceStateUndefined {
		graphicsOnly := ResourceStateRenderTarget | ResourceStateDepthWrite | ResourceStateDepthRead |
			ResourceStateVertexAndConstantBuffer | ResourceStateIndexBuffer | ResourceStatePresent
		if queue == QueueTransfer || (queue == QueueCompute && s&graphicsOnly != 0) {
			return StageAllCommands
		}
	}
	switch {
	case s == ResourceStateUndefined:
		return StageTop
	case s&(ResourceStateRenderTarget) != 0:
		return StageColorAttachmentOutput
	case s&(ResourceStateDepthWrite|ResourceStateDepthRead) != 0:
		return StageEarlyFragmentTests | StageLateFragmentTests
	case s&ResourceStateUnorderedAccess != 0:
		if queue == QueueCompute {
			return StageComputeShader
		}
		return StageComputeShader | StageFragmentShader
	case s&ResourceStateShaderResource != 0:
		if queue == QueueCompute {
			return StageComputeShader
		}
		return StageVertexShader | StageFragmentShader | StageComputeShader
	case s&(ResourceStateCopyDest|ResourceStateCopySource) != 0:
		return StageTransfer
	case s&(ResourceStateVertexAndConstantBuffer) != 0:
		return StageVertexInput | StageVertexShader | StageFragmentShader | StageComputeShader
	case s&ResourceStateIndexBuffer != 0:
		return StageVertexInput
	case s&ResourceStateIndirectArgument != 0:
		return StageDrawIndirect
	case s&(ResourceStatePresent) != 0:
		return StageBottom
	default:
		return StageAllCommands
	}
}

// NeedsUAVBarrier reports whether a transition from cur to next within
// the same ResourceStateUnorderedAccess state requires a UAV-to-UAV
// hazard barrier (a write must complete before the next read/write of
// the same resource may begin, even though the logical state does not
// change). This is the "UAV self-barrier" special case spec.md calls
// out: a plain before/after state comparison misses it because
// cur == next.
func NeedsUAVBarrier(cur, next ResourceState) bool {
	return cur&ResourceStateUnorderedAccess != 0 && next&ResourceStateUnorderedAccess != 0
}

// NeedsOwnershipTransfer reports whether moving a resource from
// fromQueue to toQueue requires a release-on-fromQueue /
// acquire-on-toQueue barrier pair rather than a single in-place
// barrier. Per spec.md §4.5, same-queue transitions never need this;
// cross-queue ones always do, regardless of the state pair.
func NeedsOwnershipTransfer(fromQueue, toQueue QueueType) bool {
	return fromQueue != toQueue
}

// ValidateBarrier reports whether b is internally consistent: Acquire
// and Release are mutually exclusive, and so are BeginOnly and EndOnly.
// QueueType is not checked.
func ValidateBarrier(b Barrier) error {
	if b.Acquire && b.Release {
		return ErrState
	}
	if b.BeginOnly && b.EndOnly {
		return ErrState
	}
	return nil
}
