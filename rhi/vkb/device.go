// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/internal/rlog"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// queueFamilyEntry is one queue registry row, keyed by the family's
// queue-flag bitmask per spec.md §4.3: {available_count, used_count,
// family_index}, plus the concrete vk.Queue handles created for it at
// device bring-up so request_queue_index has something to hand out.
type queueFamilyEntry struct {
	family    uint32
	flags     vk.QueueFlags
	available int
	used      int
	handles   []vk.Queue
}

// device implements rhi.Device.
type device struct {
	a       *adapter
	handle  vk.Device
	qFamCount int

	// queueFamilies[i] is the set of capabilities family i advertises.
	queueFamilies []vk.QueueFlags
	// familyFor maps a requested QueueType to the family index chosen
	// at RequestDevice time, matching the teacher's single-qfam choice
	// generalized to one family per type. Populated from queueReg, kept
	// around because barrier queue-family-transfer resolution
	// (cmd.go's ownerFamilies) only ever needs "the family for a type",
	// not the full registry.
	familyFor map[rhi.QueueType]uint32

	qmu     sync.Mutex
	queueReg map[vk.QueueFlags]*queueFamilyEntry

	nullTex      *texture // Dim2D DescriptorTexture/RWTexture default, per spec.md §4.3/§4.12
	nullTexByDim map[rhi.TextureDimension]*texture
	nullBuf      *buffer // Uniform/Storage/TexelBuffer default
	nullSamp     *sampler

	emptySet       rhi.DescriptorSet // size-one pool, zero-binding layout; not bound by Cmd.BindDescriptorSet
	emptySetLayout vk.DescriptorSetLayout

	rpCache renderPassCache
}

// queueTypeBit maps a backend-neutral QueueType to the vk queue-flag
// bit a family must advertise to serve it.
func queueTypeBit(t rhi.QueueType) vk.QueueFlagBits {
	switch t {
	case rhi.QueueCompute:
		return vk.QueueFlagBits(vk.QueueComputeBit)
	case rhi.QueueTransfer:
		return vk.QueueFlagBits(vk.QueueTransferBit)
	default:
		return vk.QueueFlagBits(vk.QueueGraphicsBit)
	}
}

// chooseFamily runs spec.md §4.3's queue_index algorithm: among
// families whose flags include want and whose used < available, pick
// the one with the smallest flag population count ("most
// specialized"). It does not itself mutate used_count; callers that
// are requesting (not just querying) a slot must do that themselves.
func chooseFamily(reg map[vk.QueueFlags]*queueFamilyEntry, want vk.QueueFlagBits) (*queueFamilyEntry, bool) {
	var best *queueFamilyEntry
	for _, e := range reg {
		if e.flags&vk.QueueFlags(want) == 0 || e.used >= e.available {
			continue
		}
		if best == nil || bits.OnesCount32(uint32(e.flags)) < bits.OnesCount32(uint32(best.flags)) {
			best = e
		}
	}
	return best, best != nil
}

func newDevice(a *adapter, desc rhi.DeviceDesc) (rhi.Device, error) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(a.pd, &n, nil)
	famProps := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(a.pd, &n, famProps)

	flags := make([]vk.QueueFlags, n)
	reg := map[vk.QueueFlags]*queueFamilyEntry{}
	for i := range famProps {
		famProps[i].Deref()
		flags[i] = vk.QueueFlags(famProps[i].QueueFlags)
		reg[flags[i]] = &queueFamilyEntry{
			family:    uint32(i),
			flags:     flags[i],
			available: int(famProps[i].QueueCount),
		}
	}
	if len(reg) == 0 {
		return nil, fmt.Errorf("vkb: %w: adapter reports no queue families", rhi.ErrConfig)
	}

	graphicsEntry, ok := chooseFamily(reg, vk.QueueFlagBits(vk.QueueGraphicsBit))
	if !ok {
		return nil, fmt.Errorf("vkb: %w: adapter has no graphics-capable queue family", rhi.ErrConfig)
	}
	familyFor := map[rhi.QueueType]uint32{rhi.QueueGraphics: graphicsEntry.family}
	if e, ok := chooseFamily(reg, vk.QueueFlagBits(vk.QueueComputeBit)); ok {
		familyFor[rhi.QueueCompute] = e.family
	} else {
		familyFor[rhi.QueueCompute] = graphicsEntry.family
	}
	if e, ok := chooseFamily(reg, vk.QueueFlagBits(vk.QueueTransferBit)); ok {
		familyFor[rhi.QueueTransfer] = e.family
	} else {
		familyFor[rhi.QueueTransfer] = graphicsEntry.family
	}

	// Pre-create device queues for every family named above. Graphics
	// is capped to a single queue ("to keep a single graphics queue",
	// spec.md §4.3); compute/transfer get up to 2 so independent
	// NewQueue callers can hold distinct, concurrently-usable queues
	// without exceeding the family's own reported availability.
	wantCount := map[uint32]int{}
	bump := func(fam uint32, n int) {
		if wantCount[fam] < n {
			wantCount[fam] = n
		}
	}
	bump(familyFor[rhi.QueueGraphics], 1)
	bump(familyFor[rhi.QueueCompute], 2)
	bump(familyFor[rhi.QueueTransfer], 2)

	var queueInfos []vk.DeviceQueueCreateInfo
	prioBuf := map[uint32][]float32{}
	for fam, want := range wantCount {
		var entry *queueFamilyEntry
		for _, e := range reg {
			if e.family == fam {
				entry = e
				break
			}
		}
		if want > entry.available {
			want = entry.available
		}
		entry.available = want // clamp the registry to what we actually create
		prio := make([]float32, want)
		for i := range prio {
			prio[i] = 1.0
		}
		prioBuf[fam] = prio
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: fam,
			QueueCount:       uint32(want),
			PQueuePriorities: prio,
		})
	}

	exts := wantedDeviceExtensions()
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        &a.features,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}

	var vkDev vk.Device
	if res := vk.CreateDevice(a.pd, &info, nil, &vkDev); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateDevice failed: %v", rhi.ErrFatal, res)
	}

	for fam, prio := range prioBuf {
		var entry *queueFamilyEntry
		for _, e := range reg {
			if e.family == fam {
				entry = e
				break
			}
		}
		entry.handles = make([]vk.Queue, len(prio))
		for i := range entry.handles {
			vk.GetDeviceQueue(vkDev, fam, uint32(i), &entry.handles[i])
		}
	}

	d := &device{a: a, handle: vkDev, qFamCount: int(n), queueFamilies: flags, familyFor: familyFor, queueReg: reg}
	if err := d.createNullDescriptors(); err != nil {
		vk.DestroyDevice(vkDev, nil)
		return nil, err
	}
	alloc.For("vkb-device").Alloc(0)
	return d, nil
}

func wantedDeviceExtensions() []string {
	return []string{"VK_KHR_swapchain"}
}

func (d *device) Adapter() rhi.Adapter { return d.a }

// NewQueue implements spec.md §4.3's request_queue_index: run the
// queue_index algorithm, fall back to family 0 / index 0 with a
// warning if no candidate has room, and increment the chosen family's
// used_count.
func (d *device) NewQueue(desc rhi.QueueDesc) (rhi.Queue, error) {
	d.qmu.Lock()
	defer d.qmu.Unlock()

	var entry *queueFamilyEntry
	if desc.Type == rhi.QueueGraphics {
		// Graphics always returns the same family/index, per spec.md §4.3.
		fam := d.familyFor[rhi.QueueGraphics]
		for _, e := range d.queueReg {
			if e.family == fam {
				entry = e
				break
			}
		}
	} else if e, ok := chooseFamily(d.queueReg, queueTypeBit(desc.Type)); ok {
		entry = e
	}
	idx := 0
	if entry == nil || entry.used >= len(entry.handles) {
		rlog.Warnf("vkb: no available queue family for type %v, falling back to family 0 index 0", desc.Type)
		for _, e := range d.queueReg {
			if e.family == 0 && len(e.handles) > 0 {
				entry = e
			}
		}
		if entry == nil {
			return nil, fmt.Errorf("vkb: %w: no queue available for type %v", rhi.ErrConfig, desc.Type)
		}
		idx = 0
	} else {
		idx = entry.used
	}
	entry.used++
	return newQueue(d, entry.handles[idx], entry.family, entry.flags, desc.Type), nil
}

// ReleaseQueue decrements the owning family's used_count, per Testable
// Property 3 (used_count <= available_count, balanced by
// create_queue/release_queue).
func (d *device) ReleaseQueue(q rhi.Queue) error {
	vq, ok := q.(*queue)
	if !ok {
		return fmt.Errorf("vkb: %w: Queue not created by this backend", rhi.ErrConfig)
	}
	d.qmu.Lock()
	defer d.qmu.Unlock()
	entry, ok := d.queueReg[vq.famFlags]
	if !ok || entry.used == 0 {
		return fmt.Errorf("vkb: %w: queue already released", rhi.ErrState)
	}
	entry.used--
	return nil
}

func (d *device) NewFence(desc rhi.FenceDesc) (*rhi.Fence, error)         { return newFence(d, desc) }
func (d *device) NewSemaphore(desc rhi.SemaphoreDesc) (*rhi.Semaphore, error) { return newSemaphore(d) }
func (d *device) NewCmdPool(desc rhi.CmdPoolDesc) (rhi.CmdPool, error)    { return newCmdPool(d, desc) }
func (d *device) NewSwapChain(desc rhi.SwapChainDesc) (rhi.SwapChain, error) { return newSwapChain(d, desc) }
func (d *device) NewBuffer(desc rhi.BufferDesc) (rhi.Buffer, error)       { return newBuffer(d, desc) }
func (d *device) NewTexture(desc rhi.TextureDesc) (rhi.Texture, error)    { return newTexture(d, desc) }
func (d *device) NewRenderTarget(desc rhi.RenderTargetDesc) (rhi.RenderTarget, error) {
	return newRenderTarget(d, desc)
}
func (d *device) NewSampler(desc rhi.SamplerDesc) (rhi.Sampler, error) { return newSampler(d, desc) }
func (d *device) NewShader(desc rhi.ShaderDesc) (rhi.Shader, error)    { return newShader(d, desc) }
func (d *device) NewRootSignature(desc rhi.RootSignatureDesc) (rhi.RootSignature, error) {
	return newRootSignature(d, desc)
}
func (d *device) NewGraphicsPipeline(state rhi.GraphState) (rhi.Pipeline, error) {
	return newGraphicsPipeline(d, state)
}
func (d *device) NewComputePipeline(state rhi.CompState) (rhi.Pipeline, error) {
	return nil, fmt.Errorf("vkb: %w: compute pipelines are not yet supported", rhi.ErrConfig)
}

func (d *device) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.handle); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkDeviceWaitIdle failed: %v", rhi.ErrFatal, res)
	}
	return nil
}

func (d *device) Destroy() {
	if d.emptySet != nil {
		d.emptySet.Destroy()
		vk.DestroyDescriptorSetLayout(d.handle, d.emptySetLayout, nil)
	}
	if d.nullSamp != nil {
		d.nullSamp.Destroy()
	}
	if d.nullBuf != nil {
		d.nullBuf.Destroy()
	}
	for _, t := range d.nullTexByDim {
		t.Destroy()
	}
	d.destroyRenderPassCache()
	vk.DestroyDevice(d.handle, nil)
	alloc.For("vkb-device").Free(0)
}

// nullTextureDims is every texture dimension createImageView can
// actually produce (it derives ViewType2d/2dArray/3d/Cube from
// ArraySize/Depth/the cubemap create flag, never Dim1D/DimCubeArray),
// so these are the dimensions a descriptor binding can plausibly
// declare and still get a matching null default.
var nullTextureDims = []rhi.TextureDimension{rhi.Dim2D, rhi.Dim2DArray, rhi.DimCube, rhi.Dim3D}

func nullTextureDesc(dim rhi.TextureDimension) rhi.TextureDesc {
	desc := rhi.TextureDesc{
		Name: "rhi-null-texture", Width: 1, Height: 1, Depth: 1,
		ArraySize: 1, MipLevels: 1, SampleCount: rhi.Sample1,
		Format:      rhi.FormatRGBA8Unorm,
		Descriptors: rhi.DescriptorTexture | rhi.DescriptorRWTexture,
	}
	switch dim {
	case rhi.Dim2DArray:
		desc.Name, desc.ArraySize = "rhi-null-texture-2d-array", 2
	case rhi.DimCube:
		desc.Name, desc.ArraySize, desc.Flags = "rhi-null-texture-cube", 6, rhi.TextureCreateCubemap
	case rhi.Dim3D:
		desc.Name, desc.Depth = "rhi-null-texture-3d", 2
	default:
		desc.Name = "rhi-null-texture-2d"
	}
	return desc
}

// createNullDescriptors builds the full default-resource set spec.md
// §4.3/§4.12 requires: a null texture per bindable dimension (SRV+UAV),
// a null buffer (uniform/storage/texel), a null sampler, and an empty
// descriptor set (d.emptySet). Every
// null texture starts UNDEFINED and is moved to its shader-read state
// by a single one-shot cmd+fence before this call returns, so a
// DescriptorSet's writeNullDefaults pass never binds an image still
// sitting in the layout it was created with.
func (d *device) createNullDescriptors() error {
	d.nullTexByDim = map[rhi.TextureDimension]*texture{}
	for _, dim := range nullTextureDims {
		tex, err := newTexture(d, nullTextureDesc(dim))
		if err != nil {
			return fmt.Errorf("vkb: %w: failed to create null texture (dim %v): %v", rhi.ErrResource, dim, err)
		}
		d.nullTexByDim[dim] = tex.(*texture)
	}
	d.nullTex = d.nullTexByDim[rhi.Dim2D]

	buf, err := newBuffer(d, rhi.BufferDesc{
		Name: "rhi-null-buffer", Size: 256,
		Descriptors: rhi.DescriptorUniformBuffer | rhi.DescriptorBuffer | rhi.DescriptorRWBuffer |
			rhi.DescriptorTexelBuffer | rhi.DescriptorRWTexelBuffer,
		MemoryUsage: rhi.MemoryUsageGPUOnly,
	})
	if err != nil {
		return fmt.Errorf("vkb: %w: failed to create null buffer: %v", rhi.ErrResource, err)
	}
	d.nullBuf = buf.(*buffer)

	samp, err := newSampler(d, rhi.SamplerDesc{
		MagFilter: rhi.FilterLinear, MinFilter: rhi.FilterLinear, MipMapMode: rhi.MipMapLinear,
		AddressU: rhi.AddressRepeat, AddressV: rhi.AddressRepeat, AddressW: rhi.AddressRepeat,
	})
	if err != nil {
		return fmt.Errorf("vkb: %w: failed to create null sampler: %v", rhi.ErrResource, err)
	}
	d.nullSamp = samp.(*sampler)

	if err := d.transitionNullTextures(); err != nil {
		return err
	}
	return d.createEmptyDescriptorSet()
}

// transitionNullTextures runs every null texture's UNDEFINED ->
// SHADER_RESOURCE barrier in a single one-shot cmd buffer, submitted on
// the device's own graphics queue handle (bypassing NewQueue/
// ReleaseQueue's used_count bookkeeping, since this slot is never
// handed out to a caller) and waited on with a throwaway fence.
func (d *device) transitionNullTextures() error {
	fam := d.familyFor[rhi.QueueGraphics]
	var entry *queueFamilyEntry
	for _, e := range d.queueReg {
		if e.family == fam {
			entry = e
			break
		}
	}
	if entry == nil || len(entry.handles) == 0 {
		return fmt.Errorf("vkb: %w: no graphics queue available to transition null resources", rhi.ErrResource)
	}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: fam,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.handle, &poolInfo, nil, &pool); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkCreateCommandPool failed for null-resource transition: %v", rhi.ErrResource, res)
	}
	defer vk.DestroyCommandPool(d.handle, pool, nil)

	allocInfo := vk.CommandBufferAllocateInfo{
		SType: vk.StructureTypeCommandBufferAllocateInfo, CommandPool: pool,
		Level: vk.CommandBufferLevelPrimary, CommandBufferCount: 1,
	}
	bufs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.handle, &allocInfo, bufs); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkAllocateCommandBuffers failed for null-resource transition: %v", rhi.ErrResource, res)
	}
	cb := bufs[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cb, &beginInfo); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkBeginCommandBuffer failed for null-resource transition: %v", rhi.ErrResource, res)
	}

	var imgBarriers []vk.ImageMemoryBarrier
	for _, t := range d.nullTexByDim {
		_, dstLayout := accessAndLayout(rhi.ResourceStateShaderResource)
		imgBarriers = append(imgBarriers, vk.ImageMemoryBarrier{
			SType: vk.StructureTypeImageMemoryBarrier, SrcAccessMask: 0,
			DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:           vk.ImageLayoutUndefined,
			NewLayout:           dstLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               t.handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     vk.RemainingMipLevels,
				BaseArrayLayer: 0,
				LayerCount:     vk.RemainingArrayLayers,
			},
		})
	}
	vk.CmdPipelineBarrier(cb, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, uint32(len(imgBarriers)), imgBarriers)

	if res := vk.EndCommandBuffer(cb); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkEndCommandBuffer failed for null-resource transition: %v", rhi.ErrResource, res)
	}

	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if res := vk.CreateFence(d.handle, &fenceInfo, nil, &fence); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkCreateFence failed for null-resource transition: %v", rhi.ErrResource, res)
	}
	defer vk.DestroyFence(d.handle, fence, nil)

	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo, CommandBufferCount: 1,
		PCommandBuffers: []vk.CommandBuffer{cb},
	}
	d.qmu.Lock()
	res := vk.QueueSubmit(entry.handles[0], 1, []vk.SubmitInfo{submitInfo}, fence)
	d.qmu.Unlock()
	if res != vk.Success {
		return fmt.Errorf("vkb: %w: vkQueueSubmit failed for null-resource transition: %v", rhi.ErrResource, res)
	}
	if res := vk.WaitForFences(d.handle, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkWaitForFences failed for null-resource transition: %v", rhi.ErrResource, res)
	}
	return nil
}

// createEmptyDescriptorSet allocates a single vk.DescriptorSet from a
// zero-binding vk.DescriptorSetLayout, stored on d.emptySet and
// destroyed with the device. Cmd.BindDescriptorSet binds only the set
// it is given and never binds d.emptySet, so an update-frequency slot
// the caller leaves unbound is not filled with it.
func (d *device) createEmptyDescriptorSet() error {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{SType: vk.StructureTypeDescriptorSetLayoutCreateInfo}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.handle, &layoutInfo, nil, &layout); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkCreateDescriptorSetLayout failed for empty set: %v", rhi.ErrResource, res)
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType: vk.StructureTypeDescriptorPoolCreateInfo, MaxSets: 1,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeSampler, DescriptorCount: 1}},
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.handle, &poolInfo, nil, &pool); res != vk.Success {
		vk.DestroyDescriptorSetLayout(d.handle, layout, nil)
		return fmt.Errorf("vkb: %w: vkCreateDescriptorPool failed for empty set: %v", rhi.ErrResource, res)
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType: vk.StructureTypeDescriptorSetAllocateInfo, DescriptorPool: pool,
		DescriptorSetCount: 1, PSetLayouts: []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(d.handle, &allocInfo, sets); res != vk.Success {
		vk.DestroyDescriptorPool(d.handle, pool, nil)
		vk.DestroyDescriptorSetLayout(d.handle, layout, nil)
		return fmt.Errorf("vkb: %w: vkAllocateDescriptorSets failed for empty set: %v", rhi.ErrResource, res)
	}

	d.emptySetLayout = layout
	d.emptySet = &descriptorSet{
		d: d, plan: &rhi.DescriptorSetLayout{Freq: 0, MaxSets: 1}, pool: pool, sets: sets,
		byName: map[string]*rhi.DescriptorInfo{},
	}
	return nil
}
