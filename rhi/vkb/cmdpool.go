// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// cmdPool implements rhi.CmdPool. Per spec.md §3 a pool is not
// internally synchronized: callers must confine NewCmd/Reset to one
// goroutine, mirroring vkCommandPool's own external-synchronization
// requirement.
type cmdPool struct {
	d         *device
	handle    vk.CommandPool
	cmds      []*cmd
	queueType rhi.QueueType
	family    uint32
}

func newCmdPool(d *device, desc rhi.CmdPoolDesc) (rhi.CmdPool, error) {
	q, ok := desc.Queue.(*queue)
	if !ok {
		return nil, fmt.Errorf("vkb: %w: CmdPoolDesc.Queue not created by this backend", rhi.ErrConfig)
	}
	var flags vk.CommandPoolCreateFlagBits
	if desc.ShortLived {
		flags |= vk.CommandPoolCreateTransientBit
	}
	if desc.AllowIndividualReset {
		flags |= vk.CommandPoolCreateResetCommandBufferBit
	}
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(flags),
		QueueFamilyIndex: q.family,
	}
	var h vk.CommandPool
	if res := vk.CreateCommandPool(d.handle, &info, nil, &h); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateCommandPool failed: %v", rhi.ErrResource, res)
	}
	alloc.For("vkb-cmdpool").Alloc(0)
	return &cmdPool{d: d, handle: h, queueType: q.typ, family: q.family}, nil
}

func (p *cmdPool) NewCmd(desc rhi.CmdDesc) (rhi.Cmd, error) {
	level := vk.CommandBufferLevelPrimary
	if desc.Secondary {
		level = vk.CommandBufferLevelSecondary
	}
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              level,
		CommandBufferCount: 1,
	}
	bufs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(p.d.handle, &info, bufs); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkAllocateCommandBuffers failed: %v", rhi.ErrResource, res)
	}
	c := &cmd{pool: p, handle: bufs[0], state: rhi.CmdIdle}
	p.cmds = append(p.cmds, c)
	return c, nil
}

func (p *cmdPool) Reset() error {
	if res := vk.ResetCommandPool(p.d.handle, p.handle, vk.CommandPoolResetFlags(0)); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkResetCommandPool failed: %v", rhi.ErrResource, res)
	}
	for _, c := range p.cmds {
		c.state = rhi.CmdIdle
	}
	return nil
}

func (p *cmdPool) Destroy() {
	vk.DestroyCommandPool(p.d.handle, p.handle, nil)
	alloc.For("vkb-cmdpool").Free(0)
}
