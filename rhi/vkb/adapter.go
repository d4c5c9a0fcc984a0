// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/internal/bitm"
	"github.com/NoSW/Axe-sub000/internal/rlog"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// adapter implements rhi.Adapter.
type adapter struct {
	b   *backend
	pd  vk.PhysicalDevice
	idx int

	props    vk.PhysicalDeviceProperties
	features vk.PhysicalDeviceFeatures
	memProps vk.PhysicalDeviceMemoryProperties

	settings rhi.GPUSettings
	caps     rhi.GPUCapBits

	devSlots bitm.Bitm[uint32]
}

func newAdapter(b *backend, pd vk.PhysicalDevice, idx int) *adapter {
	a := &adapter{b: b, pd: pd, idx: idx}
	vk.GetPhysicalDeviceProperties(pd, &a.props)
	vk.GetPhysicalDeviceFeatures(pd, &a.features)
	vk.GetPhysicalDeviceMemoryProperties(pd, &a.memProps)
	a.props.Deref()
	a.features.Deref()
	a.memProps.Deref()

	a.settings = buildSettings(&a.props, &a.features)
	probeFormatCaps(pd, &a.caps)

	rlog.Infof("vkb: adapter[%d] %s (vendor=%#x model=%#x driver=%s)",
		idx, a.settings.VendorPreset.GPUName, a.settings.VendorPreset.VendorID,
		a.settings.VendorPreset.ModelID, a.settings.VendorPreset.DriverVersion)
	return a
}

func buildSettings(props *vk.PhysicalDeviceProperties, feat *vk.PhysicalDeviceFeatures) rhi.GPUSettings {
	limits := props.Limits
	limits.Deref()

	s := rhi.GPUSettings{
		UniformBufferAlignment:          uint32(limits.MinUniformBufferOffsetAlignment),
		UploadBufferTextureAlignment:    uint32(limits.OptimalBufferCopyOffsetAlignment),
		UploadBufferTextureRowAlignment: uint32(limits.OptimalBufferCopyRowPitchAlignment),
		MaxVertexInputBindings: limits.MaxVertexInputBindings,
		GeometryShaderSupported: feat.GeometryShader != vk.False,
		TessellationSupported:  feat.TessellationShader != vk.False,
		VendorPreset: rhi.GPUVendorPreset{
			VendorID:      props.VendorID,
			ModelID:       props.DeviceID,
			RevisionID:    0, // Vulkan exposes no revision ID
			DriverVersion: decodeDriverVersion(props.VendorID, props.DriverVersion),
			GPUName:       vk.ToString(props.DeviceName[:]),
		},
	}
	return s
}

// decodeDriverVersion formats a VkPhysicalDeviceProperties.driverVersion
// value. NVIDIA packs its driver version into non-standard bitfields
// (10/8/8/6 bits); every other vendor follows the generic
// VK_VERSION_MAJOR/MINOR/PATCH 10/10/12-bit scheme. This mirrors the
// original's VulkanAdapter vendor switch verbatim (a feature the
// distilled spec dropped, supplemented back in per SPEC_FULL.md).
func decodeDriverVersion(vendorID, driverVersion uint32) string {
	if vendorID == vendorIDNVIDIA {
		major := (driverVersion >> 22) & 0x3ff
		minor := (driverVersion >> 14) & 0x0ff
		secondary := (driverVersion >> 6) & 0x0ff
		tertiary := driverVersion & 0x3f
		return fmt.Sprintf("%d.%d.%d.%d", major, minor, secondary, tertiary)
	}
	major := driverVersion >> 22
	minor := (driverVersion >> 12) & 0x3ff
	patch := driverVersion & 0xfff
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

func probeFormatCaps(pd vk.PhysicalDevice, caps *rhi.GPUCapBits) {
	probe := func(f rhi.PixelFormat) {
		vkf := toVkFormat(f)
		if vkf == vk.FormatUndefined {
			return
		}
		var fp vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(pd, vkf, &fp)
		fp.Deref()
		opt := vk.FormatFeatureFlags(fp.OptimalTilingFeatures)
		caps.Set(f, rhi.FormatCaps{
			ShaderReadable:       opt&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit) != 0,
			ShaderWritable:       opt&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) != 0,
			RenderTargetWritable: opt&vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit) != 0,
		})
	}
	for f := rhi.PixelFormat(1); f < rhi.FormatD16Unorm; f++ {
		probe(f)
	}
}

func (a *adapter) Settings() rhi.GPUSettings { return a.settings }

func (a *adapter) Type() rhi.AdapterType {
	switch a.props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return rhi.AdapterDiscreteGPU
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return rhi.AdapterIntegratedGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return rhi.AdapterVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return rhi.AdapterCPU
	default:
		return rhi.AdapterOther
	}
}

func (a *adapter) FormatCaps() *rhi.GPUCapBits { return &a.caps }

func (a *adapter) RequestDevice(desc rhi.DeviceDesc) (rhi.Device, error) {
	return newDevice(a, desc)
}
