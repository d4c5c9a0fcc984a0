// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

// PixelFormat describes the layout and interpretation of a pixel. The set
// covers the formats the Vulkan backend can actually create; it is not the
// full ~239-entry table the original implementation carries, since most of
// those are alternate packings of the same handful of channel layouts.
type PixelFormat int

const (
	FormatUndefined PixelFormat = iota

	// Color, 8-bit channels.
	FormatRGBA8Unorm
	FormatRGBA8Norm
	FormatRGBA8SRGB
	FormatBGRA8Unorm
	FormatBGRA8SRGB
	FormatRG8Unorm
	FormatRG8Norm
	FormatR8Unorm
	FormatR8Norm

	// Color, 10/2-bit packed.
	FormatA2B10G10R10Unorm

	// Color, 16-bit channels.
	FormatRGBA16Float
	FormatRG16Float
	FormatR16Float

	// Color, 32-bit channels.
	FormatRGBA32Float
	FormatRG32Float
	FormatR32Float

	// Depth/stencil.
	FormatD16Unorm
	FormatD32Float
	FormatS8Uint
	FormatD24UnormS8Uint
	FormatD32FloatS8Uint

	formatCount
)

// HasDepth reports whether the format carries a depth aspect.
func (f PixelFormat) HasDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD32Float, FormatD24UnormS8Uint, FormatD32FloatS8Uint:
		return true
	default:
		return false
	}
}

// HasStencil reports whether the format carries a stencil aspect.
func (f PixelFormat) HasStencil() bool {
	switch f {
	case FormatS8Uint, FormatD24UnormS8Uint, FormatD32FloatS8Uint:
		return true
	default:
		return false
	}
}

// IsDepthOrStencil reports whether the format is a depth and/or stencil
// format, as opposed to a color format.
func (f PixelFormat) IsDepthOrStencil() bool { return f.HasDepth() || f.HasStencil() }

// BytesPerPixel returns the tightly-packed byte size of one texel in
// f. loader uses it to turn a mip's row width into row bytes before
// rounding up to the device's upload-buffer row alignment; rhi/vkb
// uses it to turn that row pitch back into a texel count for
// VkBufferImageCopy.BufferRowLength. None of the formats this package
// creates are block-compressed, so this is always a flat per-texel size.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatR8Unorm, FormatR8Norm, FormatS8Uint:
		return 1
	case FormatRG8Unorm, FormatRG8Norm, FormatR16Float, FormatD16Unorm:
		return 2
	case FormatRGBA8Unorm, FormatRGBA8Norm, FormatRGBA8SRGB, FormatBGRA8Unorm, FormatBGRA8SRGB,
		FormatA2B10G10R10Unorm, FormatRG16Float, FormatR32Float, FormatD32Float, FormatD24UnormS8Uint:
		return 4
	case FormatRGBA16Float, FormatRG32Float, FormatD32FloatS8Uint:
		return 8
	case FormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// FormatCaps holds the per-format capability bits an Adapter probes at
// bring-up: whether a format can be read/written by shaders and whether it
// can be written to as a render target. It replaces the original's
// three fixed-size [239]bool arrays with one array of FormatCaps indexed
// by PixelFormat, sized for the formats this implementation creates.
type FormatCaps struct {
	ShaderReadable       bool
	ShaderWritable       bool
	RenderTargetWritable bool
}

// GPUCapBits is the adapter-wide table of FormatCaps, one entry per
// PixelFormat this backend recognizes.
type GPUCapBits struct {
	caps [formatCount]FormatCaps
}

// Set records the capability bits for a format.
func (b *GPUCapBits) Set(f PixelFormat, c FormatCaps) {
	if f >= 0 && f < formatCount {
		b.caps[f] = c
	}
}

// Get returns the capability bits recorded for a format; the zero value
// if the format was never probed.
func (b *GPUCapBits) Get(f PixelFormat) FormatCaps {
	if f < 0 || f >= formatCount {
		return FormatCaps{}
	}
	return b.caps[f]
}

// CanShaderRead reports whether f can be sampled/loaded by a shader.
func (b *GPUCapBits) CanShaderRead(f PixelFormat) bool { return b.Get(f).ShaderReadable }

// CanShaderWrite reports whether f can be written by a shader (RW texture).
func (b *GPUCapBits) CanShaderWrite(f PixelFormat) bool { return b.Get(f).ShaderWritable }

// CanRenderTargetWrite reports whether f can back a render target.
func (b *GPUCapBits) CanRenderTargetWrite(f PixelFormat) bool { return b.Get(f).RenderTargetWritable }

// Dim3D is a three-dimensional extent, used for texture shape.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}
