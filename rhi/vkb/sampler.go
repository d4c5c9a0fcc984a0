// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

type sampler struct {
	d      *device
	handle vk.Sampler
}

func newSampler(d *device, desc rhi.SamplerDesc) (rhi.Sampler, error) {
	if desc.Conversion != nil {
		// Multi-planar YCbCr conversion needs VK_KHR_sampler_ycbcr_conversion,
		// not in wantedDeviceExtensions; reject rather than silently
		// ignoring the conversion the caller asked for.
		return nil, fmt.Errorf("vkb: %w: sampler YCbCr conversion is not enabled on this device", rhi.ErrConfig)
	}

	anisotropyEnable := vk.False
	maxAnisotropy := float32(1.0)
	if desc.MaxAnisotropy > 1.0 {
		anisotropyEnable = vk.True
		maxAnisotropy = desc.MaxAnisotropy
	}
	compareEnable := vk.False
	if desc.CompareFunc != rhi.CompareNever {
		compareEnable = vk.True
	}
	maxLod := desc.MaxLod
	if !desc.SetLodRange {
		maxLod = vk.LodClampNone
	}

	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               toVkFilter(desc.MagFilter),
		MinFilter:               toVkFilter(desc.MinFilter),
		MipmapMode:              toVkMipMapMode(desc.MipMapMode),
		AddressModeU:            toVkAddressMode(desc.AddressU),
		AddressModeV:            toVkAddressMode(desc.AddressV),
		AddressModeW:            toVkAddressMode(desc.AddressW),
		MipLodBias:              desc.MipLodBias,
		AnisotropyEnable:        anisotropyEnable,
		MaxAnisotropy:           maxAnisotropy,
		CompareEnable:           compareEnable,
		CompareOp:               toVkCompareOp(desc.CompareFunc),
		MinLod:                  desc.MinLod,
		MaxLod:                  maxLod,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}

	var h vk.Sampler
	if res := vk.CreateSampler(d.handle, &info, nil, &h); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateSampler failed: %v", rhi.ErrResource, res)
	}
	alloc.For("vkb-sampler").Alloc(0)
	return &sampler{d: d, handle: h}, nil
}

func (s *sampler) Destroy() {
	vk.DestroySampler(s.d.handle, s.handle, nil)
	alloc.For("vkb-sampler").Free(0)
}
