// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rhi defines a backend-agnostic render-hardware-interface (RHI).
// It models the object graph of a GPU graphics/compute API (instance,
// adapter, device, queues, resources, pipelines) without committing to any
// particular native graphics API. Concrete backends (rhi/vkb, rhi/d3d12b)
// implement the interfaces declared here.
package rhi

// QueueType identifies the kind of work a Queue accepts.
type QueueType int

const (
	QueueGraphics QueueType = iota
	QueueCompute
	QueueTransfer
	queueTypeCount
)

func (t QueueType) String() string {
	switch t {
	case QueueGraphics:
		return "graphics"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	default:
		return "undefined"
	}
}

// QueueFlags carries queue-creation hints.
type QueueFlags uint32

const (
	QueueFlagNone QueueFlags = 0
	// QueueFlagDisableGPUTimeout disables the OS watchdog timeout for
	// long-running work submitted to this queue.
	QueueFlagDisableGPUTimeout QueueFlags = 1 << (iota - 1)
)

// QueuePriority is the native scheduling priority requested for a queue.
type QueuePriority int

const (
	QueuePriorityNormal QueuePriority = iota
	QueuePriorityHigh
	QueuePriorityGlobalRealtime
)

// FenceStatus is the tri-state result of Fence.Status.
type FenceStatus int

const (
	FenceComplete FenceStatus = iota
	FenceIncomplete
	FenceNotSubmitted
)

// FilterType selects nearest or linear sampling.
type FilterType int

const (
	FilterNearest FilterType = iota
	FilterLinear
)

// MipMapMode selects nearest or linear mip sampling.
type MipMapMode int

const (
	MipMapNearest MipMapMode = iota
	MipMapLinear
)

// AddressMode is a texture-coordinate wrap mode.
type AddressMode int

const (
	AddressMirror AddressMode = iota
	AddressRepeat
	AddressClampToEdge
	AddressClampToBorder
)

// CompareOp is a depth/stencil/sampler comparison function.
type CompareOp int

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLEqual
	CompareGreater
	CompareNotEqual
	CompareGEqual
	CompareAlways
)

// SampleCount is a supported MSAA sample count.
type SampleCount int

const (
	Sample1  SampleCount = 1
	Sample2  SampleCount = 2
	Sample4  SampleCount = 4
	Sample8  SampleCount = 8
	Sample16 SampleCount = 16
)

// ResourceState is a logical GPU-resource usage state. States are a
// bitmask so that a resource can be described by the union of ways it is
// about to be used; rhi/barrier.go resolves a state (possibly composite)
// to pipeline stages, and each backend maps it to its native access
// masks and image layouts (accessAndLayout in rhi/vkb).
type ResourceState uint32

const (
	ResourceStateUndefined                ResourceState = 0
	ResourceStateVertexAndConstantBuffer  ResourceState = 1 << 0
	ResourceStateIndexBuffer              ResourceState = 1 << 1
	ResourceStateRenderTarget             ResourceState = 1 << 2
	ResourceStateUnorderedAccess          ResourceState = 1 << 3
	ResourceStateDepthWrite               ResourceState = 1 << 4
	ResourceStateDepthRead                ResourceState = 1 << 5
	ResourceStateNonPixelShaderResource   ResourceState = 1 << 6
	ResourceStatePixelShaderResource      ResourceState = 1 << 7
	ResourceStateShaderResource                         = ResourceStateNonPixelShaderResource | ResourceStatePixelShaderResource
	ResourceStateStreamOut                ResourceState = 1 << 8
	ResourceStateIndirectArgument         ResourceState = 1 << 9
	ResourceStateCopyDest                 ResourceState = 1 << 10
	ResourceStateCopySource               ResourceState = 1 << 11
	ResourceStatePresent                  ResourceState = 1 << 12
	ResourceStateCommon                   ResourceState = 1 << 13
	ResourceStateRaytracingAccelStructure ResourceState = 1 << 14
	ResourceStateShadingRateSource        ResourceState = 1 << 15
	ResourceStateGenericRead                            = ResourceStateVertexAndConstantBuffer | ResourceStateIndexBuffer |
		ResourceStateNonPixelShaderResource | ResourceStatePixelShaderResource |
		ResourceStateIndirectArgument | ResourceStateCopySource
)

// TextureCreateFlags carries texture-creation hints beyond shape/format.
type TextureCreateFlags uint32

const (
	TextureCreateNone TextureCreateFlags = 0
	TextureCreateOwnMemory TextureCreateFlags = 1 << (iota - 1)
	TextureCreateExport
	TextureCreateForce2D
	TextureCreateForce3D
	TextureCreateCubemap
	TextureCreateOnTile
	TextureCreateVRFoveatedRendering
)

// DescriptorType is a bitmask of the ways a resource may be bound to a
// shader. A resource may legally advertise more than one bit (e.g. a
// texel buffer that is both readable and writable).
type DescriptorType uint32

const (
	DescriptorUndefined DescriptorType = 0
	DescriptorSampler   DescriptorType = 1 << (iota - 1)
	DescriptorTexture
	DescriptorRWTexture
	DescriptorBuffer
	DescriptorRWBuffer
	DescriptorUniformBuffer
	DescriptorRootConstant
	DescriptorVertexBuffer
	DescriptorIndexBuffer
	DescriptorIndirectBuffer
	DescriptorTextureCube
	DescriptorRayTracing
	DescriptorInputAttachment
	DescriptorTexelBuffer
	DescriptorRWTexelBuffer
	DescriptorCombinedImageSampler
	DescriptorUniformBufferDynamic
)

// ShaderStage identifies one stage of the graphics/compute pipeline.
type ShaderStage uint32

const (
	StageNone ShaderStage = 0
	StageVert ShaderStage = 1 << (iota - 1)
	StageTesc
	StageTese
	StageGeom
	StageFrag
	StageComp
	StageRayTracing
)

// StageCount is the number of distinct single-bit ShaderStage values.
const StageCount = 7

// TextureDimension is the shader-visible view dimension of a texture.
type TextureDimension int

const (
	Dim1D TextureDimension = iota
	Dim2D
	Dim2DMS
	Dim3D
	DimCube
	Dim1DArray
	Dim2DArray
	Dim2DMSArray
	DimCubeArray
	DimUndefined
)

// PipelineType distinguishes the three pipeline shapes a RootSignature
// and Pipeline may take.
type PipelineType int

const (
	PipelineUndefined PipelineType = iota
	PipelineCompute
	PipelineGraphics
	PipelineRaytracing
)

// UpdateFrequency is one of the four fixed descriptor-set tiers. A
// descriptor's update frequency equals the set index it is bound at.
type UpdateFrequency int

const (
	FreqNone UpdateFrequency = iota
	FreqPerFrame
	FreqPerBatch
	FreqPerDraw
	freqCount
)

// RootSignatureFlags carries root-signature creation hints.
type RootSignatureFlags uint32

const (
	RootSignatureFlagNone  RootSignatureFlags = 0
	RootSignatureFlagLocal RootSignatureFlags = 1 << (iota - 1)
)

// AdapterType classifies the kind of physical device an Adapter wraps.
type AdapterType int

const (
	AdapterOther AdapterType = iota
	AdapterIntegratedGPU
	AdapterDiscreteGPU
	AdapterVirtualGPU
	AdapterCPU
)

// ShaderModel is the minimum shader feature level a Device requires.
type ShaderModel int

const (
	ShaderModel51 ShaderModel = 0x51
	ShaderModel60 ShaderModel = 0x60
	ShaderModel61 ShaderModel = 0x61
	ShaderModel62 ShaderModel = 0x62
	ShaderModel63 ShaderModel = 0x63
	ShaderModel64 ShaderModel = 0x64
	ShaderModel65 ShaderModel = 0x65
	ShaderModel66 ShaderModel = 0x66
	ShaderModel67 ShaderModel = 0x67
)

// WaveOpsSupportFlags reports which wave/subgroup intrinsics a device
// exposes.
type WaveOpsSupportFlags uint32

const (
	WaveOpsNone        WaveOpsSupportFlags = 0
	WaveOpsBasic       WaveOpsSupportFlags = 1 << (iota - 1)
	WaveOpsVote
	WaveOpsArithmetic
	WaveOpsBallot
	WaveOpsShuffle
	WaveOpsShuffleRelative
	WaveOpsClustered
	WaveOpsQuad
)

// StageFromExt maps a compiled-shader relative-path extension to the
// ShaderStage it represents, mirroring the convention the shader byte-code
// store keys its blobs by.
func StageFromExt(ext string) ShaderStage {
	switch ext {
	case ".vert":
		return StageVert
	case ".tesc":
		return StageTesc
	case ".tese":
		return StageTese
	case ".geom":
		return StageGeom
	case ".frag":
		return StageFrag
	case ".comp":
		return StageComp
	case ".rgen", ".rmiss", ".rchit", ".rint", ".rahit", ".rcall":
		return StageRayTracing
	default:
		return StageNone
	}
}

// stageIndex returns a dense [0,StageCount) index for a single-bit stage,
// used to index per-stage arrays (e.g. compute local group size).
func stageIndex(s ShaderStage) int {
	switch s {
	case StageVert:
		return 0
	case StageTesc:
		return 1
	case StageTese:
		return 2
	case StageGeom:
		return 3
	case StageFrag:
		return 4
	case StageComp:
		return 5
	case StageRayTracing:
		return 6
	default:
		return -1
	}
}
