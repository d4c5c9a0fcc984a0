// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"sync"

	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// queue implements rhi.Queue. Vulkan requires external synchronization
// on a VkQueue handle across vkQueueSubmit/vkQueuePresentKHR calls; mu
// provides that, mirroring the teacher's per-family qmus []sync.Mutex
// in driver/vk/driver.go so concurrent Submit/Present calls from
// different goroutines serialize instead of racing.
type queue struct {
	d        *device
	handle   vk.Queue
	family   uint32
	famFlags vk.QueueFlags // registry key this queue's slot was taken from
	typ      rhi.QueueType
	mu       sync.Mutex
}

func newQueue(d *device, h vk.Queue, family uint32, famFlags vk.QueueFlags, typ rhi.QueueType) *queue {
	return &queue{d: d, handle: h, family: family, famFlags: famFlags, typ: typ}
}

func (q *queue) Type() rhi.QueueType { return q.typ }

func (q *queue) Submit(desc rhi.QueueSubmitDesc) error {
	cmds := make([]vk.CommandBuffer, len(desc.Cmds))
	for i, c := range desc.Cmds {
		cc, ok := c.(*cmd)
		if !ok {
			return fmt.Errorf("vkb: %w: Cmd not created by this backend", rhi.ErrState)
		}
		if cc.state != rhi.CmdEnded {
			return fmt.Errorf("vkb: %w: cmd must be Ended before submit, was %v", rhi.ErrState, cc.state)
		}
		cmds[i] = cc.handle
	}

	waits := make([]vk.Semaphore, len(desc.WaitSemaphores))
	waitStages := make([]vk.PipelineStageFlags, len(desc.WaitSemaphores))
	for i, s := range desc.WaitSemaphores {
		waits[i] = s.Native.(vk.Semaphore)
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	signals := make([]vk.Semaphore, len(desc.SignalSemaphores))
	for i, s := range desc.SignalSemaphores {
		signals[i] = s.Native.(vk.Semaphore)
	}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(cmds)),
		PCommandBuffers:      cmds,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}

	var fence vk.Fence
	if desc.SignalFence != nil {
		fence = desc.SignalFence.Native.(vk.Fence)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if res := vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{info}, fence); res != vk.Success {
		if res == vk.ErrorDeviceLost {
			return rhi.ErrFatal
		}
		return fmt.Errorf("vkb: %w: vkQueueSubmit failed: %v", rhi.ErrResource, res)
	}
	for _, c := range desc.Cmds {
		c.(*cmd).state = rhi.CmdCommitted
	}
	return nil
}

func (q *queue) Present(desc rhi.QueuePresentDesc) error {
	sc, ok := desc.SwapChain.(*swapChain)
	if !ok {
		return fmt.Errorf("vkb: %w: SwapChain not created by this backend", rhi.ErrState)
	}
	waits := make([]vk.Semaphore, len(desc.WaitSemaphores))
	for i, s := range desc.WaitSemaphores {
		waits[i] = s.Native.(vk.Semaphore)
	}
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{desc.Index},
	}

	q.mu.Lock()
	res := vk.QueuePresent(q.handle, &info)
	q.mu.Unlock()

	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return rhi.SwapchainWarning{Suboptimal: true}
	case vk.ErrorOutOfDate:
		return rhi.SwapchainWarning{OutOfDate: true}
	default:
		return fmt.Errorf("vkb: %w: vkQueuePresentKHR failed: %v", rhi.ErrCannotPresent, res)
	}
}

func (q *queue) WaitIdle() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if res := vk.QueueWaitIdle(q.handle); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkQueueWaitIdle failed: %v", rhi.ErrFatal, res)
	}
	return nil
}
