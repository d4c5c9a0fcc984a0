// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"context"
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

func newFence(d *device, desc rhi.FenceDesc) (*rhi.Fence, error) {
	var flags vk.FenceCreateFlags
	if desc.Signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: flags}
	var h vk.Fence
	if res := vk.CreateFence(d.handle, &info, nil, &h); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateFence failed: %v", rhi.ErrResource, res)
	}
	alloc.For("vkb-fence").Alloc(0)

	return &rhi.Fence{
		Native: h,
		Status: func() (rhi.FenceStatus, error) {
			switch vk.GetFenceStatus(d.handle, h) {
			case vk.Success:
				return rhi.FenceComplete, nil
			case vk.NotReady:
				return rhi.FenceIncomplete, nil
			default:
				return rhi.FenceNotSubmitted, fmt.Errorf("vkb: %w: vkGetFenceStatus failed", rhi.ErrFatal)
			}
		},
		Wait: func(ctx context.Context) error {
			done := make(chan vk.Result, 1)
			go func() { done <- vk.WaitForFences(d.handle, 1, []vk.Fence{h}, vk.True, vk.MaxUint64) }()
			select {
			case res := <-done:
				if res != vk.Success {
					return fmt.Errorf("vkb: %w: vkWaitForFences failed: %v", rhi.ErrFatal, res)
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		Destroy: func() {
			vk.DestroyFence(d.handle, h, nil)
			alloc.For("vkb-fence").Free(0)
		},
	}, nil
}

func newSemaphore(d *device) (*rhi.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var h vk.Semaphore
	if res := vk.CreateSemaphore(d.handle, &info, nil, &h); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateSemaphore failed: %v", rhi.ErrResource, res)
	}
	alloc.For("vkb-semaphore").Alloc(0)
	return &rhi.Semaphore{
		Native: h,
		Destroy: func() {
			vk.DestroySemaphore(d.handle, h, nil)
			alloc.For("vkb-semaphore").Free(0)
		},
	}, nil
}
