// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import "github.com/NoSW/Axe-sub000/wsi"

// GPUMode selects whether multiple adapters participate in linked
// (SLI/Crossfire-style) or unlinked (independent) operation.
type GPUMode int

const (
	GPUModeSingle GPUMode = iota
	GPUModeLinked
	GPUModeUnlinked
)

// BackendDesc configures Backend.Create.
type BackendDesc struct {
	AppName string
	GPUMode GPUMode
	// EnableDebugLayer installs validation layers and a debug messenger
	// when the backend supports them. Ignored in release builds of a
	// backend that strips the capability entirely.
	EnableDebugLayer bool
	// WantedInstanceLayers/WantedInstanceExtensions are requested but not
	// required: Backend.Create enables the intersection with what the
	// platform actually reports and warns (does not fail) about the rest.
	WantedInstanceLayers     []string
	WantedInstanceExtensions []string
}

// AdapterDesc configures Backend.RequestAdapter.
type AdapterDesc struct {
	// SelectBest, when true, returns the first adapter in ranked order;
	// its zero value is false. When false, Index selects adapters[Index].
	// RequestAdapter does not mark an adapter as in use, so repeated
	// calls can return the same adapter.
	SelectBest bool
	Index      int
}

// DeviceDesc configures Adapter.RequestDevice.
type DeviceDesc struct {
	EnableRenderDocLayer      bool
	RequestAllAvailableQueues bool
	ShaderModel               ShaderModel
}

// GPUVendorPreset identifies a physical device's vendor/model/driver.
type GPUVendorPreset struct {
	VendorID      uint32
	ModelID       uint32
	RevisionID    uint32
	DriverVersion string
	GPUName       string
}

// GPUSettings is the capability/limits surface Adapter.Settings exposes.
type GPUSettings struct {
	UniformBufferAlignment          uint32
	UploadBufferTextureAlignment    uint32
	UploadBufferTextureRowAlignment uint32
	MaxVertexInputBindings          uint32
	MaxRootSignatureDWORDs          uint32
	WaveLaneCount                   uint32
	WaveOpsSupportFlags             WaveOpsSupportFlags
	VendorPreset                    GPUVendorPreset
	TimestampPeriod                 float32

	MultiDrawIndirect     bool
	ROVsSupported         bool
	TessellationSupported bool
	GeometryShaderSupported bool
	GPUBreadcrumbs        bool
	HDRSupported          bool
}

// QueueDesc configures Device.NewQueue.
type QueueDesc struct {
	NodeIndex int
	Type      QueueType
	Flags     QueueFlags
	Priority  QueuePriority
}

// QueueSubmitDesc configures Queue.Submit.
type QueueSubmitDesc struct {
	Cmds            []Cmd
	WaitSemaphores  []*Semaphore
	SignalSemaphores []*Semaphore
	SignalFence     *Fence
}

// QueuePresentDesc configures Queue.Present.
type QueuePresentDesc struct {
	WaitSemaphores []*Semaphore
	SwapChain      SwapChain
	Index          uint32
}

// ClearValue is a color or depth/stencil clear value, used depending on
// the target's format.
type ClearValue struct {
	R, G, B, A     float32
	Depth          float32
	Stencil        uint32
}

// SwapChainDesc configures Device.NewSwapChain.
type SwapChainDesc struct {
	Window          wsi.Window
	PresentQueues   []Queue
	ImageCount      int
	Width, Height   int
	ColorClearValue ClearValue
	UseHDR          bool
	EnableVsync     bool
}

// SemaphoreDesc configures Device.NewSemaphore. Empty today; kept as a
// struct for interface-contract symmetry with every other New*Desc and
// to leave room for future flags without an API break.
type SemaphoreDesc struct{}

// FenceDesc configures Device.NewFence.
type FenceDesc struct {
	Signaled bool
}

// CmdPoolDesc configures Device.NewCmdPool.
type CmdPoolDesc struct {
	Queue                 Queue
	ShortLived            bool
	AllowIndividualReset  bool
}

// CmdDesc configures Device.NewCmd.
type CmdDesc struct {
	Pool      CmdPool
	Secondary bool
}

// SamplerConversionDesc configures multi-planar (YCbCr) sampler
// conversion.
type SamplerConversionDesc struct {
	Format                     PixelFormat
	Model                      int
	Range                      int
	ChromaOffsetX, ChromaOffsetY int
	ChromaFilter               FilterType
	ForceExplicitReconstruction bool
}

// SamplerDesc configures Device.NewSampler.
type SamplerDesc struct {
	MinFilter    FilterType
	MagFilter    FilterType
	MipMapMode   MipMapMode
	AddressU     AddressMode
	AddressV     AddressMode
	AddressW     AddressMode
	MipLodBias   float32
	MinLod       float32
	MaxLod       float32
	SetLodRange  bool
	MaxAnisotropy float32
	CompareFunc  CompareOp

	Conversion *SamplerConversionDesc
}

// TextureDesc configures Device.NewTexture.
type TextureDesc struct {
	Name           string
	NativeHandle   any // non-nil for a borrowed (non-owned) image, e.g. a swapchain backbuffer
	Flags          TextureCreateFlags
	Width, Height, Depth int
	ArraySize      int
	MipLevels      int
	SampleCount    SampleCount
	SampleQuality  int
	Format         PixelFormat
	StartState     ResourceState
	Descriptors    DescriptorType
	ClearValue     ClearValue
}

// RenderTargetDesc configures Device.NewRenderTarget.
type RenderTargetDesc struct {
	Name          string
	Width, Height, Depth int
	ArraySize     int
	MipLevels     int
	SampleCount   SampleCount
	SampleQuality int
	Format        PixelFormat
	StartState    ResourceState
	ClearValue    ClearValue
}

// Barrier is the common shape of a texture/buffer/render-target barrier:
// a transition from CurrentState to NewState, with the queue-family
// ownership-transfer and subresource-targeting fields spec.md §4.5
// describes.
type Barrier struct {
	CurrentState ResourceState
	NewState     ResourceState

	BeginOnly bool
	EndOnly   bool
	Acquire   bool
	Release   bool
	QueueType QueueType // meaningful only when Acquire or Release is set

	IsSubresource bool
	MipLevel      int
	ArrayLayer    int
}

// TextureBarrier targets a Texture.
type TextureBarrier struct {
	Barrier
	Texture Texture
}

// BufferBarrier targets a Buffer.
type BufferBarrier struct {
	Barrier
	Buffer Buffer
}

// RenderTargetBarrier targets a RenderTarget.
type RenderTargetBarrier struct {
	Barrier
	RenderTarget RenderTarget
}

// ShaderStageDesc names one stage's compiled byte-code and entry point.
type ShaderStageDesc struct {
	EntryPoint string
	FilePath   string
	Stage      ShaderStage
}

// ShaderConstant is a specialization-constant blob (Vulkan/Metal only).
type ShaderConstant struct {
	Blob  []byte
	Index uint32
}

// ShaderDesc configures Device.NewShader.
type ShaderDesc struct {
	Stages      []ShaderStageDesc
	Constants   []ShaderConstant
	ShaderModel ShaderModel
}

// RootSignatureDesc configures Device.NewRootSignature.
type RootSignatureDesc struct {
	Shaders             []Shader
	StaticSamplerNames  []string
	StaticSamplers      []Sampler
	MaxBindlessTextures int
	Flags               RootSignatureFlags
}

// RangeDesc describes a sub-range of a buffer bound by a descriptor
// update.
type RangeDesc struct {
	Offset int64
	Size   int64
}

// DescriptorUpdate is one parameter of a DescriptorSet.Update call.
type DescriptorUpdate struct {
	Name  string // resolved by name if non-empty, else by Index
	Index int

	ArrayOffset int
	Resources   []any // Buffer, Texture, or Sampler, depending on the descriptor's type
	Ranges      []RangeDesc

	BindStencil  bool
	UAVMipSlice  int
	BindMipChain bool
}

// VertexAttribDesc describes one vertex-input attribute.
type VertexAttribDesc struct {
	Name      string
	Format    PixelFormat
	Binding   int
	Offset    int
	InstanceStep bool // true: per-instance, false: per-vertex
}

// VertexLayoutDesc is the full vertex-input state of a graphics pipeline.
type VertexLayoutDesc struct {
	Attribs []VertexAttribDesc
}

// BlendStateDesc is the per-target blend configuration (a subset
// simplified from the original's independent-per-target table: spec.md
// §4.14 names the fields this implementation needs).
type BlendStateDesc struct {
	SrcColor, DstColor BlendConstant
	SrcAlpha, DstAlpha BlendConstant
	IndependentBlend   bool
	PerTarget          []BlendTargetDesc
}

// BlendConstant is a blend-factor enum.
type BlendConstant int

const (
	BlendOne BlendConstant = iota
	BlendZero
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

// BlendTargetDesc overrides blend state for one color target when
// IndependentBlend is set.
type BlendTargetDesc struct {
	SrcColor, DstColor BlendConstant
	SrcAlpha, DstAlpha BlendConstant
}

// DepthStateDesc is depth/stencil test configuration.
type DepthStateDesc struct {
	DepthTest   bool
	DepthWrite  bool
	DepthFunc   CompareOp
	StencilTest bool
	StencilReadMask, StencilWriteMask uint8
}

// RasterStateDesc is fixed-function rasterizer configuration.
type RasterStateDesc struct {
	CullMode    CullMode
	FrontFace   FrontFace
	FillMode    FillMode
	DepthClamp  bool
	DepthBias   int32
	SlopeScaledDepthBias float32
}

// CullMode selects back-face culling behavior.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// FrontFace selects the winding order considered front-facing.
type FrontFace int

const (
	FrontCCW FrontFace = iota
	FrontCW
)

// FillMode selects wireframe vs. solid rasterization.
type FillMode int

const (
	FillSolid FillMode = iota
	FillWireframe
)

// PrimitiveTopology selects how vertices assemble into primitives.
type PrimitiveTopology int

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// GraphState configures Device.NewPipeline for a graphics pipeline.
type GraphState struct {
	Shader        Shader
	RootSignature RootSignature
	VertexLayout  VertexLayoutDesc
	BlendState    *BlendStateDesc
	DepthState    *DepthStateDesc
	RasterState   *RasterStateDesc
	Topology      PrimitiveTopology
	SampleCount   SampleCount
	ColorFormats  []PixelFormat
	DepthFormat   PixelFormat
}

// CompState configures Device.NewPipeline for a compute pipeline.
type CompState struct {
	Shader        Shader
	RootSignature RootSignature
}
