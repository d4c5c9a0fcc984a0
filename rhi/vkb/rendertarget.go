// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"github.com/NoSW/Axe-sub000/rhi"
)

// renderTarget implements rhi.RenderTarget as a thin wrapper over a
// texture created with render-target-appropriate descriptors, matching
// the teacher's RenderTarget-wraps-Texture shape.
type renderTarget struct {
	tex         *texture
	sampleCount rhi.SampleCount
}

func newRenderTarget(d *device, desc rhi.RenderTargetDesc) (rhi.RenderTarget, error) {
	descriptors := rhi.DescriptorTexture
	if desc.Format.IsDepthOrStencil() {
		descriptors = rhi.DescriptorUndefined
	}
	t, err := newTexture(d, rhi.TextureDesc{
		Name: desc.Name, Width: desc.Width, Height: desc.Height, Depth: desc.Depth,
		ArraySize: desc.ArraySize, MipLevels: desc.MipLevels,
		SampleCount: desc.SampleCount, SampleQuality: desc.SampleQuality,
		Format: desc.Format, StartState: desc.StartState,
		Descriptors: descriptors, ClearValue: desc.ClearValue,
	})
	if err != nil {
		return nil, err
	}
	return &renderTarget{tex: t.(*texture), sampleCount: desc.SampleCount}, nil
}

// wrapRenderTarget adapts an already-constructed texture (a swapchain
// backbuffer) into a RenderTarget without going through newTexture's
// allocation path again.
func wrapRenderTarget(t *texture, sampleCount rhi.SampleCount) *renderTarget {
	return &renderTarget{tex: t, sampleCount: sampleCount}
}

func (r *renderTarget) Texture() rhi.Texture          { return r.tex }
func (r *renderTarget) Format() rhi.PixelFormat        { return r.tex.format }
func (r *renderTarget) SampleCount() rhi.SampleCount   { return r.sampleCount }
func (r *renderTarget) Destroy()                       { r.tex.Destroy() }
