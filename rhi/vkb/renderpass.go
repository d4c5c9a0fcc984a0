// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// renderPassCache builds and reuses a vk.RenderPass per distinct
// (color formats, depth format, sample count) combination. vulkan-go's
// generated binding predates VK_KHR_dynamic_rendering, so both
// Cmd.BindRenderTargets and NewGraphicsPipeline must agree on a
// render-pass object; keying by format tuple is what lets a pipeline
// built ahead of time stay render-pass-compatible with the framebuffer
// BindRenderTargets assembles per call.
type renderPassCache struct {
	mu    sync.Mutex
	byKey map[string]vk.RenderPass
}

func renderPassKey(colorFormats []rhi.PixelFormat, depthFormat rhi.PixelFormat, samples rhi.SampleCount) string {
	var sb strings.Builder
	for _, f := range colorFormats {
		sb.WriteString(strconv.Itoa(int(f)))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(int(depthFormat)))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(int(samples)))
	return sb.String()
}

func (d *device) getOrCreateRenderPass(colorFormats []rhi.PixelFormat, depthFormat rhi.PixelFormat, samples rhi.SampleCount) (vk.RenderPass, error) {
	key := renderPassKey(colorFormats, depthFormat, samples)

	d.rpCache.mu.Lock()
	if rp, ok := d.rpCache.byKey[key]; ok {
		d.rpCache.mu.Unlock()
		return rp, nil
	}
	d.rpCache.mu.Unlock()

	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	for _, f := range colorFormats {
		vkFmt := toVkFormat(f)
		attachments = append(attachments, vk.AttachmentDescription{
			Format:        vkFmt,
			Samples:       toVkSampleCount(samples),
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpStore,
			StencilLoadOp: vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	var depthRef *vk.AttachmentReference
	if depthFormat != rhi.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:        toVkFormat(depthFormat),
			Samples:       toVkSampleCount(samples),
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpStore,
			StencilLoadOp: vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		depthRef = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if depthRef != nil {
		subpass.PDepthStencilAttachment = depthRef
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var rp vk.RenderPass
	if res := vk.CreateRenderPass(d.handle, &info, nil, &rp); res != vk.Success {
		return vk.NullRenderPass, fmt.Errorf("vkb: %w: vkCreateRenderPass failed: %v", rhi.ErrResource, res)
	}

	d.rpCache.mu.Lock()
	if d.rpCache.byKey == nil {
		d.rpCache.byKey = map[string]vk.RenderPass{}
	}
	d.rpCache.byKey[key] = rp
	d.rpCache.mu.Unlock()
	return rp, nil
}

func (d *device) destroyRenderPassCache() {
	d.rpCache.mu.Lock()
	defer d.rpCache.mu.Unlock()
	for _, rp := range d.rpCache.byKey {
		vk.DestroyRenderPass(d.handle, rp, nil)
	}
	d.rpCache.byKey = nil
}
