// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"testing"

	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

func TestToVkFormatRoundTrip(t *testing.T) {
	cases := []rhi.PixelFormat{
		rhi.FormatRGBA8Unorm, rhi.FormatRGBA8SRGB, rhi.FormatBGRA8Unorm, rhi.FormatBGRA8SRGB,
	}
	for _, f := range cases {
		vkf := toVkFormat(f)
		if vkf == vk.FormatUndefined {
			t.Fatalf("toVkFormat(%v) = Undefined", f)
		}
		if got := fromVkFormat(vkf); got != f {
			t.Errorf("fromVkFormat(toVkFormat(%v)) = %v, want %v", f, got, f)
		}
	}
}

func TestToVkFormatUnknown(t *testing.T) {
	if got := toVkFormat(rhi.PixelFormat(9999)); got != vk.FormatUndefined {
		t.Errorf("toVkFormat(unknown) = %v, want Undefined", got)
	}
}

func TestToVkSampleCount(t *testing.T) {
	tests := []struct {
		in   rhi.SampleCount
		want vk.SampleCountFlagBits
	}{
		{rhi.Sample1, vk.SampleCount1Bit},
		{rhi.Sample2, vk.SampleCount2Bit},
		{rhi.Sample4, vk.SampleCount4Bit},
		{rhi.Sample8, vk.SampleCount8Bit},
		{rhi.Sample16, vk.SampleCount16Bit},
	}
	for _, tc := range tests {
		if got := toVkSampleCount(tc.in); got != tc.want {
			t.Errorf("toVkSampleCount(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestToVkDescriptorTypeIAOnlyBitsAreSentinel(t *testing.T) {
	// DescriptorVertexBuffer/IndexBuffer/IndirectBuffer are input-assembly
	// concepts with no Vulkan descriptor-type equivalent; they must map
	// to the invalid sentinel so a caller building a
	// DescriptorSetLayoutBinding never accidentally includes one.
	for _, d := range []rhi.DescriptorType{rhi.DescriptorVertexBuffer, rhi.DescriptorIndexBuffer, rhi.DescriptorIndirectBuffer} {
		if got := toVkDescriptorType(d); got != vk.DescriptorType(^uint32(0)) {
			t.Errorf("toVkDescriptorType(%v) = %v, want sentinel", d, got)
		}
	}
}

func TestToVkDescriptorTypeKnown(t *testing.T) {
	tests := []struct {
		in   rhi.DescriptorType
		want vk.DescriptorType
	}{
		{rhi.DescriptorSampler, vk.DescriptorTypeSampler},
		{rhi.DescriptorTexture, vk.DescriptorTypeSampledImage},
		{rhi.DescriptorRWTexture, vk.DescriptorTypeStorageImage},
		{rhi.DescriptorUniformBuffer, vk.DescriptorTypeUniformBuffer},
		{rhi.DescriptorUniformBufferDynamic, vk.DescriptorTypeUniformBufferDynamic},
		{rhi.DescriptorCombinedImageSampler, vk.DescriptorTypeCombinedImageSampler},
	}
	for _, tc := range tests {
		if got := toVkDescriptorType(tc.in); got != tc.want {
			t.Errorf("toVkDescriptorType(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAccessAndLayoutUndefined(t *testing.T) {
	access, layout := accessAndLayout(rhi.ResourceStateUndefined)
	if access != 0 || layout != vk.ImageLayoutUndefined {
		t.Errorf("accessAndLayout(Undefined) = (%v, %v), want (0, Undefined)", access, layout)
	}
}

func TestAccessAndLayoutPresent(t *testing.T) {
	access, layout := accessAndLayout(rhi.ResourceStatePresent)
	if access != 0 || layout != vk.ImageLayoutPresentSrc {
		t.Errorf("accessAndLayout(Present) = (%v, %v), want (0, PresentSrc)", access, layout)
	}
}

func TestAccessAndLayoutRenderTarget(t *testing.T) {
	access, layout := accessAndLayout(rhi.ResourceStateRenderTarget)
	if access != vk.AccessFlags(vk.AccessColorAttachmentWriteBit) || layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("accessAndLayout(RenderTarget) = (%v, %v), want (ColorAttachmentWrite, ColorAttachmentOptimal)", access, layout)
	}
}

func TestToVkShaderStageFlagsCombines(t *testing.T) {
	got := toVkShaderStageFlags(rhi.StageVert | rhi.StageFrag)
	want := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	if got != want {
		t.Errorf("toVkShaderStageFlags(Vert|Frag) = %v, want %v", got, want)
	}
}

func TestToVkPipelineStageDefaultsToAllCommands(t *testing.T) {
	if got := toVkPipelineStage(0); got != vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit) {
		t.Errorf("toVkPipelineStage(0) = %v, want AllCommands", got)
	}
}
