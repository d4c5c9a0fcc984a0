// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rhi defines the backend-agnostic render-hardware-interface:
// a Backend brings up a graphics API instance, enumerates Adapters,
// opens a Device, and from there creates every other GPU object. The
// ownership hierarchy is Backend → Adapter → Device → {Queue, Fence,
// Semaphore, CmdPool → Cmd, Buffer, Texture, RenderTarget, SwapChain,
// Sampler, Shader, RootSignature → DescriptorSet, Pipeline}: destroying
// an object higher in the chain invalidates everything it produced.
//
// Concrete backends (rhi/vkb for Vulkan, rhi/d3d12b for Direct3D 12)
// implement every interface in this file; application code is written
// against these interfaces alone, following the teacher's driver/core.go
// convention of a capital-letter interface backed by a lower-case
// backend-owned struct.
package rhi

import "context"

// Backend is the entry point: one graphics-API instance.
type Backend interface {
	// Adapters returns every adapter the backend enumerated at Create
	// time, ranked best-first (discrete GPU before integrated before
	// software, per spec.md §2).
	Adapters() []Adapter

	// RequestAdapter returns an adapter per AdapterDesc, or ErrNoDevice
	// if none matches.
	RequestAdapter(desc AdapterDesc) (Adapter, error)

	// Destroy tears down the instance. Every Adapter/Device/object this
	// backend produced becomes invalid; the caller must have destroyed
	// them first.
	Destroy()
}

// Create brings up a Backend for the given name ("vulkan" or
// "d3d12"), matching the teacher's driver.Open(name) registry pattern.
func Create(name string, desc BackendDesc) (Backend, error) {
	mu.RLock()
	ctor, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, ErrNotInstalled
	}
	return ctor(desc)
}

// Adapter is one physical (or software) GPU the backend can open a
// Device on.
type Adapter interface {
	Settings() GPUSettings
	Type() AdapterType

	// FormatCaps reports what operations the adapter supports on a
	// given format, queried once at enumeration and cached.
	FormatCaps() *GPUCapBits

	// RequestDevice opens a logical device on this adapter.
	RequestDevice(desc DeviceDesc) (Device, error)
}

// Device is a logical GPU connection; every object below it in the
// ownership hierarchy is created through it.
type Device interface {
	Adapter() Adapter

	NewQueue(desc QueueDesc) (Queue, error)
	// ReleaseQueue returns q's device-queue slot to its family's
	// registry, decrementing used_count so a later NewQueue can reuse
	// it. Per spec.md §4.3/Testable Property 3.
	ReleaseQueue(q Queue) error
	NewFence(desc FenceDesc) (*Fence, error)
	NewSemaphore(desc SemaphoreDesc) (*Semaphore, error)
	NewCmdPool(desc CmdPoolDesc) (CmdPool, error)
	NewSwapChain(desc SwapChainDesc) (SwapChain, error)
	NewBuffer(desc BufferDesc) (Buffer, error)
	NewTexture(desc TextureDesc) (Texture, error)
	NewRenderTarget(desc RenderTargetDesc) (RenderTarget, error)
	NewSampler(desc SamplerDesc) (Sampler, error)
	NewShader(desc ShaderDesc) (Shader, error)
	NewRootSignature(desc RootSignatureDesc) (RootSignature, error)
	NewGraphicsPipeline(state GraphState) (Pipeline, error)
	NewComputePipeline(state CompState) (Pipeline, error)

	// WaitIdle blocks until every queue on this device is idle. Used
	// at shutdown before destroying device-owned objects.
	WaitIdle() error

	Destroy()
}

// Queue is a device work queue: a sequence of submitted Cmds executed
// in order, with optional presentation.
type Queue interface {
	Type() QueueType

	// Submit enqueues cmds for execution. Per spec.md §3, calls on the
	// same Queue from different goroutines are serialized internally;
	// the caller does not need its own lock.
	Submit(desc QueueSubmitDesc) error

	// Present schedules the swapchain image at desc.Index. A non-nil
	// error other than SwapchainWarning is fatal to the swapchain.
	Present(desc QueuePresentDesc) error

	WaitIdle() error
}

// Fence is a CPU-GPU synchronization primitive: a Queue.Submit signals
// it, CPU code waits on it.
type Fence struct {
	Native  any
	Status  func() (FenceStatus, error)
	Wait    func(ctx context.Context) error
	Destroy func()
}

// Semaphore is a GPU-GPU synchronization primitive used to order work
// across queues (e.g. a present wait, an acquire signal).
type Semaphore struct {
	Native  any
	Destroy func()
}

// CmdPool allocates Cmds. Per spec.md §3, a CmdPool is not
// synchronized: all Cmds it allocates must be recorded from a single
// goroutine, and Reset invalidates every Cmd it produced.
type CmdPool interface {
	NewCmd(desc CmdDesc) (Cmd, error)
	Reset() error
	Destroy()
}

// Cmd is a recorded command buffer. Its lifecycle follows the
// teacher's cbIdle → cbBegun → cbEnded → cbCommitted state machine
// (generalized here as CmdState), plus cbFailed for a backend error
// mid-recording.
type Cmd interface {
	State() CmdState

	Begin() error
	End() error

	ResourceBarrier(textures []TextureBarrier, buffers []BufferBarrier, renderTargets []RenderTargetBarrier)

	BindRenderTargets(colors []RenderTarget, depth RenderTarget, clear bool)
	SetViewport(x, y, width, height float32, minDepth, maxDepth float32)
	SetScissor(x, y, width, height int)

	BindPipeline(p Pipeline)
	BindDescriptorSet(index int, set DescriptorSet, dynamicOffsets []uint32)
	BindVertexBuffer(binding int, buf Buffer, offset int64)
	BindIndexBuffer(buf Buffer, offset int64, is32Bit bool)
	BindPushConstants(name string, data []byte)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance int)
	DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int)
	Dispatch(groupCountX, groupCountY, groupCountZ int)

	CopyBuffer(dst Buffer, dstOffset int64, src Buffer, srcOffset int64, size int64)
	// CopyBufferToTexture copies one (mipLevel, arrayLayer) slice from
	// src at srcOffset into dst. rowPitch is the byte stride between
	// rows as laid out in src; 0 means src is tightly packed to the
	// mip's own row width.
	CopyBufferToTexture(dst Texture, src Buffer, srcOffset int64, mipLevel, arrayLayer int, rowPitch int64)

	Destroy()
}

// CmdState is the recording state of a Cmd, generalized from the
// teacher's vk.cbStatus.
type CmdState int

const (
	CmdIdle CmdState = iota
	CmdBegun
	CmdEnded
	CmdCommitted
	CmdFailed
)

func (s CmdState) String() string {
	switch s {
	case CmdIdle:
		return "idle"
	case CmdBegun:
		return "begun"
	case CmdEnded:
		return "ended"
	case CmdCommitted:
		return "committed"
	case CmdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Buffer is a linear memory allocation.
type Buffer interface {
	Size() int64
	Descriptors() DescriptorType

	// Map returns a CPU-visible slice over the buffer's contents. It
	// fails with ErrState if the buffer was not created with a
	// CPU-visible memory usage.
	Map() ([]byte, error)
	Unmap()

	Destroy()
}

// BufferDesc configures Device.NewBuffer.
type BufferDesc struct {
	Name        string
	Size        int64
	Descriptors DescriptorType
	MemoryUsage MemoryUsage
	StartState  ResourceState
	StructStride int64
	Format      PixelFormat // only for typed/texel buffers
}

// MemoryUsage selects the memory heap a Buffer is allocated from.
type MemoryUsage int

const (
	MemoryUsageGPUOnly MemoryUsage = iota
	MemoryUsageCPUOnly
	MemoryUsageCPUToGPU
	MemoryUsageGPUToCPU
)

// Texture is a (possibly mip-mapped, array-layered) image resource.
type Texture interface {
	Width() int
	Height() int
	Depth() int
	ArraySize() int
	MipLevels() int
	Format() PixelFormat
	Descriptors() DescriptorType

	Destroy()
}

// RenderTarget wraps a Texture that can be bound as a color or
// depth/stencil attachment.
type RenderTarget interface {
	Texture() Texture
	Format() PixelFormat
	SampleCount() SampleCount

	Destroy()
}

// SwapChain is a chain of presentable RenderTargets bound to a Window.
type SwapChain interface {
	ImageCount() int
	RenderTarget(index int) RenderTarget
	Format() PixelFormat

	// AcquireNextImage blocks until an image is available, signals
	// signal when it is, and returns its index. Returns
	// SwapchainWarning (non-fatal) with Suboptimal set if the chain is
	// suboptimal, SwapchainWarning with OutOfDate set (and index 0) if
	// it is out of date, and an ErrCannotPresent error on any other
	// failure.
	AcquireNextImage(signal *Semaphore) (index uint32, err error)

	Destroy()
}

// Sampler configures texture filtering/addressing.
type Sampler interface {
	Destroy()
}

// Shader is a set of compiled stage modules plus their merged
// reflection.
type Shader interface {
	Reflection() *PipelineReflection
	Destroy()
}

// RootSignature is the merged resource-binding layout derived from one
// or more Shaders, per spec.md §4.9-§4.11.
type RootSignature interface {
	Reflection() *PipelineReflection

	// DescriptorSet allocates a DescriptorSet for the given update
	// frequency, with room for maxSets simultaneously-bound instances
	// (for per-frame/per-batch double/triple buffering).
	NewDescriptorSet(freq UpdateFrequency, maxSets int) (DescriptorSet, error)

	Destroy()
}

// DescriptorSet is a pool of bound-resource-table instances at a
// single update frequency.
type DescriptorSet interface {
	Update(index int, updates []DescriptorUpdate) error
	Destroy()
}

// Pipeline is a fully-specified graphics or compute pipeline state
// object.
type Pipeline interface {
	Type() PipelineType
	Destroy()
}
