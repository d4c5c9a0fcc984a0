// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"unsafe"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// buffer implements rhi.Buffer.
type buffer struct {
	d       *device
	handle  vk.Buffer
	mem     vk.DeviceMemory
	size    int64
	descs   rhi.DescriptorType
	hostVisible bool
	mapped  bool
}

func newBuffer(d *device, desc rhi.BufferDesc) (rhi.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("vkb: %w: buffer %q: size must be positive", rhi.ErrConfig, desc.Name)
	}

	var usage vk.BufferUsageFlagBits
	usage |= vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	if desc.Descriptors&rhi.DescriptorVertexBuffer != 0 {
		usage |= vk.BufferUsageVertexBufferBit
	}
	if desc.Descriptors&rhi.DescriptorIndexBuffer != 0 {
		usage |= vk.BufferUsageIndexBufferBit
	}
	if desc.Descriptors&rhi.DescriptorIndirectBuffer != 0 {
		usage |= vk.BufferUsageIndirectBufferBit
	}
	if desc.Descriptors&(rhi.DescriptorUniformBuffer|rhi.DescriptorUniformBufferDynamic) != 0 {
		usage |= vk.BufferUsageUniformBufferBit
	}
	if desc.Descriptors&(rhi.DescriptorBuffer|rhi.DescriptorRWBuffer) != 0 {
		usage |= vk.BufferUsageStorageBufferBit
	}
	if desc.Descriptors&rhi.DescriptorTexelBuffer != 0 {
		usage |= vk.BufferUsageUniformTexelBufferBit
	}
	if desc.Descriptors&rhi.DescriptorRWTexelBuffer != 0 {
		usage |= vk.BufferUsageStorageTexelBufferBit
	}

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var h vk.Buffer
	if res := vk.CreateBuffer(d.handle, &info, nil, &h); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: buffer %q: vkCreateBuffer failed: %v", rhi.ErrResource, desc.Name, res)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, h, &req)
	req.Deref()

	hostVisible := desc.MemoryUsage != rhi.MemoryUsageGPUOnly
	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	memIdx, err := findMemoryType(d.a, req.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(d.handle, h, nil)
		return nil, fmt.Errorf("vkb: %w: buffer %q: %v", rhi.ErrResource, desc.Name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memIdx,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.handle, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyBuffer(d.handle, h, nil)
		return nil, fmt.Errorf("vkb: %w: buffer %q: vkAllocateMemory failed: %v", rhi.ErrResource, desc.Name, res)
	}
	if res := vk.BindBufferMemory(d.handle, h, mem, 0); res != vk.Success {
		vk.FreeMemory(d.handle, mem, nil)
		vk.DestroyBuffer(d.handle, h, nil)
		return nil, fmt.Errorf("vkb: %w: buffer %q: vkBindBufferMemory failed: %v", rhi.ErrResource, desc.Name, res)
	}

	alloc.For("vkb-buffer").Alloc(desc.Size)
	return &buffer{d: d, handle: h, mem: mem, size: desc.Size, descs: desc.Descriptors, hostVisible: hostVisible}, nil
}

func (b *buffer) Size() int64                     { return b.size }
func (b *buffer) Descriptors() rhi.DescriptorType { return b.descs }

func (b *buffer) Map() ([]byte, error) {
	if !b.hostVisible {
		return nil, fmt.Errorf("vkb: %w: buffer is not CPU-visible", rhi.ErrState)
	}
	if b.mapped {
		return nil, fmt.Errorf("vkb: %w: buffer is already mapped", rhi.ErrState)
	}
	var p unsafe.Pointer
	if res := vk.MapMemory(b.d.handle, b.mem, 0, vk.DeviceSize(b.size), 0, &p); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkMapMemory failed: %v", rhi.ErrResource, res)
	}
	b.mapped = true
	return unsafe.Slice((*byte)(p), b.size), nil
}

func (b *buffer) Unmap() {
	if !b.mapped {
		return
	}
	vk.UnmapMemory(b.d.handle, b.mem)
	b.mapped = false
}

func (b *buffer) Destroy() {
	if b.mapped {
		b.Unmap()
	}
	vk.DestroyBuffer(b.d.handle, b.handle, nil)
	vk.FreeMemory(b.d.handle, b.mem, nil)
	alloc.For("vkb-buffer").Free(b.size)
}
