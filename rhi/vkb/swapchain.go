// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/internal/rlog"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// surfaceProvider is the shape wsi.Window.NativeHandle() must return
// for this backend to create a VkSurfaceKHR from it. go-gl/glfw's
// *glfw.Window satisfies it directly.
type surfaceProvider interface {
	CreateWindowSurface(instance vk.Instance, allocCallbacks any) (uintptr, error)
}

type swapChain struct {
	d            *device
	handle       vk.Swapchain
	surface      vk.Surface
	format       rhi.PixelFormat
	renderTargets []*renderTarget
}

func newSwapChain(d *device, desc rhi.SwapChainDesc) (rhi.SwapChain, error) {
	sp, ok := desc.Window.NativeHandle().(surfaceProvider)
	if !ok {
		return nil, fmt.Errorf("vkb: %w: wsi.Window.NativeHandle() does not support Vulkan surface creation", rhi.ErrConfig)
	}
	surfPtr, err := sp.CreateWindowSurface(d.a.b.instance, nil)
	if err != nil {
		return nil, fmt.Errorf("vkb: %w: failed to create window surface: %v", rhi.ErrCannotPresent, err)
	}
	surface := vk.SurfaceFromPointer(surfPtr)

	var supported vk.Bool32
	presentFamily := uint32(0)
	if fam, ok := d.familyFor[rhi.QueueGraphics]; ok {
		presentFamily = fam
	}
	vk.GetPhysicalDeviceSurfaceSupport(d.a.pd, presentFamily, surface, &supported)
	if supported == vk.False {
		vk.DestroySurface(d.a.b.instance, surface, nil)
		return nil, fmt.Errorf("vkb: %w: graphics queue family does not support presenting to this surface", rhi.ErrCannotPresent)
	}

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(d.a.pd, surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.a.pd, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(d.a.pd, surface, &formatCount, formats)
	chosen := formats[0]
	chosen.Deref()
	wantFmt := vk.FormatB8g8r8a8Unorm
	if desc.UseHDR {
		wantFmt = vk.FormatA2b10g10r10UnormPack32
	}
	for _, f := range formats {
		f.Deref()
		if f.Format == wantFmt {
			chosen = f
			break
		}
	}

	presentMode := vk.PresentModeFifo // always supported; vsync-on default
	if !desc.EnableVsync {
		var modeCount uint32
		vk.GetPhysicalDeviceSurfacePresentModes(d.a.pd, surface, &modeCount, nil)
		modes := make([]vk.PresentMode, modeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(d.a.pd, surface, &modeCount, modes)
		for _, m := range modes {
			if m == vk.PresentModeMailbox {
				presentMode = vk.PresentModeMailbox
				break
			}
			if m == vk.PresentModeImmediate {
				presentMode = vk.PresentModeImmediate
			}
		}
	}

	imageCount := uint32(desc.ImageCount)
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	extent := vk.Extent2D{Width: uint32(desc.Width), Height: uint32(desc.Height)}
	if caps.CurrentExtent.Width != 0xffffffff {
		extent = caps.CurrentExtent
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      chosen.Format,
		ImageColorSpace:  chosen.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	var sc vk.Swapchain
	if res := vk.CreateSwapchain(d.handle, &info, nil, &sc); res != vk.Success {
		vk.DestroySurface(d.a.b.instance, surface, nil)
		return nil, fmt.Errorf("vkb: %w: vkCreateSwapchainKHR failed: %v", rhi.ErrResource, res)
	}

	var imgCount uint32
	vk.GetSwapchainImages(d.handle, sc, &imgCount, nil)
	images := make([]vk.Image, imgCount)
	vk.GetSwapchainImages(d.handle, sc, &imgCount, images)

	rhiFmt := fromVkFormat(chosen.Format)
	if rhiFmt == rhi.FormatUndefined {
		rlog.Warnf("vkb: swapchain format %v has no rhi.PixelFormat mapping; Texture() callers will see FormatUndefined", chosen.Format)
	}

	var rts []*renderTarget
	for _, img := range images {
		t, err := newTexture(d, rhi.TextureDesc{
			Name: "swapchain-image", NativeHandle: img,
			Width: int(extent.Width), Height: int(extent.Height), Depth: 1,
			ArraySize: 1, MipLevels: 1, SampleCount: rhi.Sample1,
			Format: rhiFmt, StartState: rhi.ResourceStatePresent,
		})
		if err != nil {
			for _, rt := range rts {
				rt.Destroy()
			}
			vk.DestroySwapchain(d.handle, sc, nil)
			vk.DestroySurface(d.a.b.instance, surface, nil)
			return nil, err
		}
		rts = append(rts, wrapRenderTarget(t.(*texture), rhi.Sample1))
	}

	alloc.For("vkb-swapchain").Alloc(0)
	return &swapChain{d: d, handle: sc, surface: surface, format: rhiFmt, renderTargets: rts}, nil
}

func (s *swapChain) ImageCount() int { return len(s.renderTargets) }

func (s *swapChain) RenderTarget(index int) rhi.RenderTarget {
	if index < 0 || index >= len(s.renderTargets) {
		return nil
	}
	return s.renderTargets[index]
}

func (s *swapChain) Format() rhi.PixelFormat { return s.format }

func (s *swapChain) AcquireNextImage(signal *rhi.Semaphore) (uint32, error) {
	var sem vk.Semaphore
	if signal != nil {
		sem = signal.Native.(vk.Semaphore)
	}
	var index uint32
	res := vk.AcquireNextImage(s.d.handle, s.handle, vk.MaxUint64, sem, vk.NullFence, &index)
	switch res {
	case vk.Success:
		return index, nil
	case vk.Suboptimal:
		return index, rhi.SwapchainWarning{Suboptimal: true}
	case vk.ErrorOutOfDate:
		return 0, rhi.SwapchainWarning{OutOfDate: true}
	default:
		return 0, fmt.Errorf("vkb: %w: vkAcquireNextImageKHR failed: %v", rhi.ErrCannotPresent, res)
	}
}

func (s *swapChain) Destroy() {
	for _, rt := range s.renderTargets {
		rt.Destroy()
	}
	vk.DestroySwapchain(s.d.handle, s.handle, nil)
	vk.DestroySurface(s.d.a.b.instance, s.surface, nil)
	alloc.For("vkb-swapchain").Free(0)
}
