// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vkb implements rhi's interfaces on top of Vulkan, using
// github.com/vulkan-go/vulkan as the binding layer (the teacher's
// driver/vk package hand-rolls its own cgo proc-address loader; this
// package uses the pack's ready-made Vulkan binding instead, for the
// reasons recorded in DESIGN.md).
package vkb

import (
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

func toVkFormat(f rhi.PixelFormat) vk.Format {
	switch f {
	case rhi.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case rhi.FormatRGBA8Norm:
		return vk.FormatR8g8b8a8Snorm
	case rhi.FormatRGBA8SRGB:
		return vk.FormatR8g8b8a8Srgb
	case rhi.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case rhi.FormatBGRA8SRGB:
		return vk.FormatB8g8r8a8Srgb
	case rhi.FormatRG8Unorm:
		return vk.FormatR8g8Unorm
	case rhi.FormatRG8Norm:
		return vk.FormatR8g8Snorm
	case rhi.FormatR8Unorm:
		return vk.FormatR8Unorm
	case rhi.FormatR8Norm:
		return vk.FormatR8Snorm
	case rhi.FormatA2B10G10R10Unorm:
		return vk.FormatA2b10g10r10UnormPack32
	case rhi.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case rhi.FormatRG16Float:
		return vk.FormatR16g16Sfloat
	case rhi.FormatR16Float:
		return vk.FormatR16Sfloat
	case rhi.FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case rhi.FormatRG32Float:
		return vk.FormatR32g32Sfloat
	case rhi.FormatR32Float:
		return vk.FormatR32Sfloat
	case rhi.FormatD16Unorm:
		return vk.FormatD16Unorm
	case rhi.FormatD32Float:
		return vk.FormatD32Sfloat
	case rhi.FormatS8Uint:
		return vk.FormatS8Uint
	case rhi.FormatD24UnormS8Uint:
		return vk.FormatD24UnormS8Uint
	case rhi.FormatD32FloatS8Uint:
		return vk.FormatD32SfloatS8Uint
	default:
		return vk.FormatUndefined
	}
}

func fromVkFormat(f vk.Format) rhi.PixelFormat {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return rhi.FormatRGBA8Unorm
	case vk.FormatR8g8b8a8Snorm:
		return rhi.FormatRGBA8Norm
	case vk.FormatR8g8b8a8Srgb:
		return rhi.FormatRGBA8SRGB
	case vk.FormatB8g8r8a8Unorm:
		return rhi.FormatBGRA8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return rhi.FormatBGRA8SRGB
	default:
		return rhi.FormatUndefined
	}
}

func toVkSampleCount(s rhi.SampleCount) vk.SampleCountFlagBits {
	switch s {
	case rhi.Sample2:
		return vk.SampleCount2Bit
	case rhi.Sample4:
		return vk.SampleCount4Bit
	case rhi.Sample8:
		return vk.SampleCount8Bit
	case rhi.Sample16:
		return vk.SampleCount16Bit
	default:
		return vk.SampleCount1Bit
	}
}

func toVkFilter(f rhi.FilterType) vk.Filter {
	if f == rhi.FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func toVkMipMapMode(m rhi.MipMapMode) vk.SamplerMipmapMode {
	if m == rhi.MipMapLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func toVkAddressMode(a rhi.AddressMode) vk.SamplerAddressMode {
	switch a {
	case rhi.AddressRepeat:
		return vk.SamplerAddressModeRepeat
	case rhi.AddressClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case rhi.AddressClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeMirroredRepeat
	}
}

func toVkCompareOp(c rhi.CompareOp) vk.CompareOp {
	switch c {
	case rhi.CompareLess:
		return vk.CompareOpLess
	case rhi.CompareEqual:
		return vk.CompareOpEqual
	case rhi.CompareLEqual:
		return vk.CompareOpLessOrEqual
	case rhi.CompareGreater:
		return vk.CompareOpGreater
	case rhi.CompareNotEqual:
		return vk.CompareOpNotEqual
	case rhi.CompareGEqual:
		return vk.CompareOpGreaterOrEqual
	case rhi.CompareAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpNever
	}
}

func toVkShaderStageFlags(s rhi.ShaderStage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&rhi.StageVert != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&rhi.StageTesc != 0 {
		f |= vk.ShaderStageTessellationControlBit
	}
	if s&rhi.StageTese != 0 {
		f |= vk.ShaderStageTessellationEvaluationBit
	}
	if s&rhi.StageGeom != 0 {
		f |= vk.ShaderStageGeometryBit
	}
	if s&rhi.StageFrag != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	if s&rhi.StageComp != 0 {
		f |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(f)
}

// toVkDescriptorType converts a merged DescriptorInfo's type. A
// handful of rhi.DescriptorType bits have no single Vulkan descriptor
// type (e.g. DescriptorVertexBuffer/IndexBuffer are IA-only concepts
// with no descriptor binding); those return vk.DescriptorType(^uint32(0))
// and must never reach a descriptor-set-layout call.
func toVkDescriptorType(t rhi.DescriptorType) vk.DescriptorType {
	switch t {
	case rhi.DescriptorSampler:
		return vk.DescriptorTypeSampler
	case rhi.DescriptorTexture, rhi.DescriptorTextureCube:
		return vk.DescriptorTypeSampledImage
	case rhi.DescriptorRWTexture:
		return vk.DescriptorTypeStorageImage
	case rhi.DescriptorBuffer:
		return vk.DescriptorTypeStorageBuffer
	case rhi.DescriptorRWBuffer:
		return vk.DescriptorTypeStorageBuffer
	case rhi.DescriptorUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case rhi.DescriptorUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic
	case rhi.DescriptorTexelBuffer:
		return vk.DescriptorTypeUniformTexelBuffer
	case rhi.DescriptorRWTexelBuffer:
		return vk.DescriptorTypeStorageTexelBuffer
	case rhi.DescriptorCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case rhi.DescriptorInputAttachment:
		return vk.DescriptorTypeInputAttachment
	default:
		return vk.DescriptorType(^uint32(0))
	}
}

func toVkImageViewType(d rhi.TextureDimension) vk.ImageViewType {
	switch d {
	case rhi.Dim1D:
		return vk.ImageViewType1d
	case rhi.Dim1DArray:
		return vk.ImageViewType1dArray
	case rhi.Dim2DArray, rhi.Dim2DMSArray:
		return vk.ImageViewType2dArray
	case rhi.Dim3D:
		return vk.ImageViewType3d
	case rhi.DimCube:
		return vk.ImageViewTypeCube
	case rhi.DimCubeArray:
		return vk.ImageViewTypeCubeArray
	default:
		return vk.ImageViewType2d
	}
}

// accessAndLayout is the backend-native half of spec.md §4.5's barrier
// translation: the (access mask, image layout) pair a given
// rhi.ResourceState maps to. It is a total function over every state
// bit this package recognizes, matching the original's internal
// util_to_vk_access_flags / util_to_vk_image_layout tables.
func accessAndLayout(s rhi.ResourceState) (vk.AccessFlags, vk.ImageLayout) {
	switch {
	case s == rhi.ResourceStateUndefined:
		return 0, vk.ImageLayoutUndefined
	case s&rhi.ResourceStateRenderTarget != 0:
		return vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.ImageLayoutColorAttachmentOptimal
	case s&rhi.ResourceStateDepthWrite != 0:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.ImageLayoutDepthStencilAttachmentOptimal
	case s&rhi.ResourceStateDepthRead != 0:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit), vk.ImageLayoutDepthStencilReadOnlyOptimal
	case s&rhi.ResourceStateUnorderedAccess != 0:
		return vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit), vk.ImageLayoutGeneral
	case s&rhi.ResourceStateShaderResource != 0:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal
	case s&rhi.ResourceStateCopyDest != 0:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal
	case s&rhi.ResourceStateCopySource != 0:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutTransferSrcOptimal
	case s&rhi.ResourceStatePresent != 0:
		return 0, vk.ImageLayoutPresentSrc
	case s&(rhi.ResourceStateVertexAndConstantBuffer) != 0:
		return vk.AccessFlags(vk.AccessVertexAttributeReadBit) | vk.AccessFlags(vk.AccessUniformReadBit), vk.ImageLayoutUndefined
	case s&rhi.ResourceStateIndexBuffer != 0:
		return vk.AccessFlags(vk.AccessIndexReadBit), vk.ImageLayoutUndefined
	case s&rhi.ResourceStateIndirectArgument != 0:
		return vk.AccessFlags(vk.AccessIndirectCommandReadBit), vk.ImageLayoutUndefined
	default:
		return vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit), vk.ImageLayoutGeneral
	}
}

func toVkPipelineStage(m rhi.PipelineStageMask) vk.PipelineStageFlags {
	var f vk.PipelineStageFlagBits
	if m&rhi.StageTop != 0 {
		f |= vk.PipelineStageTopOfPipeBit
	}
	if m&rhi.StageDrawIndirect != 0 {
		f |= vk.PipelineStageDrawIndirectBit
	}
	if m&rhi.StageVertexInput != 0 {
		f |= vk.PipelineStageVertexInputBit
	}
	if m&rhi.StageVertexShader != 0 {
		f |= vk.PipelineStageVertexShaderBit
	}
	if m&rhi.StageFragmentShader != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if m&rhi.StageEarlyFragmentTests != 0 {
		f |= vk.PipelineStageEarlyFragmentTestsBit
	}
	if m&rhi.StageLateFragmentTests != 0 {
		f |= vk.PipelineStageLateFragmentTestsBit
	}
	if m&rhi.StageColorAttachmentOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if m&rhi.StageComputeShader != 0 {
		f |= vk.PipelineStageComputeShaderBit
	}
	if m&rhi.StageTransfer != 0 {
		f |= vk.PipelineStageTransferBit
	}
	if m&rhi.StageBottom != 0 {
		f |= vk.PipelineStageBottomOfPipeBit
	}
	if m&rhi.StageHost != 0 {
		f |= vk.PipelineStageHostBit
	}
	if f == 0 {
		f = vk.PipelineStageAllCommandsBit
	}
	return vk.PipelineStageFlags(f)
}
