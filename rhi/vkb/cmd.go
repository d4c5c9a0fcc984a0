// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// cmd implements rhi.Cmd. State transitions follow the teacher's
// cbIdle -> cbBegun -> cbEnded -> cbCommitted machine generalized as
// rhi.CmdState; any Vulkan call failure mid-recording moves state to
// CmdFailed so a subsequent Submit rejects it instead of replaying a
// partially-recorded buffer.
type cmd struct {
	pool   *cmdPool
	handle vk.CommandBuffer
	state  rhi.CmdState

	inRenderPass  bool
	activeFB      vk.Framebuffer
	boundPipeline *pipeline
}

func (c *cmd) State() rhi.CmdState { return c.state }

func (c *cmd) Begin() error {
	if c.state != rhi.CmdIdle {
		return fmt.Errorf("vkb: %w: Begin called on cmd in state %v", rhi.ErrState, c.state)
	}
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(c.handle, &info); res != vk.Success {
		c.state = rhi.CmdFailed
		return fmt.Errorf("vkb: %w: vkBeginCommandBuffer failed: %v", rhi.ErrResource, res)
	}
	c.state = rhi.CmdBegun
	return nil
}

func (c *cmd) End() error {
	if c.state != rhi.CmdBegun {
		return fmt.Errorf("vkb: %w: End called on cmd in state %v", rhi.ErrState, c.state)
	}
	if c.inRenderPass {
		c.endRenderPassLocked()
	}
	if res := vk.EndCommandBuffer(c.handle); res != vk.Success {
		c.state = rhi.CmdFailed
		return fmt.Errorf("vkb: %w: vkEndCommandBuffer failed: %v", rhi.ErrResource, res)
	}
	c.state = rhi.CmdEnded
	return nil
}

// ownerFamilies resolves the (src, dst) queue-family pair a barrier's
// Acquire/Release flags describe: per spec.md §4.5, is_acquire with a
// defined current state means src is b.QueueType's family and dst is
// this cmd's own family; is_release swaps that; anything else keeps
// both sides IGNORED (no ownership transfer).
func (c *cmd) ownerFamilies(b rhi.Barrier) (src, dst uint32) {
	src, dst = uint32(vk.QueueFamilyIgnored), uint32(vk.QueueFamilyIgnored)
	switch {
	case b.Acquire && b.CurrentState != rhi.ResourceStateUndefined:
		src = c.pool.d.familyFor[b.QueueType]
		dst = c.pool.family
	case b.Release:
		src = c.pool.family
		dst = c.pool.d.familyFor[b.QueueType]
	}
	return src, dst
}

func (c *cmd) ResourceBarrier(textures []rhi.TextureBarrier, buffers []rhi.BufferBarrier, renderTargets []rhi.RenderTargetBarrier) {
	var imgBarriers []vk.ImageMemoryBarrier
	var bufBarriers []vk.BufferMemoryBarrier
	var srcStage, dstStage rhi.PipelineStageMask

	appendImage := func(img vk.Image, format rhi.PixelFormat, b rhi.Barrier) {
		srcAccess, srcLayout := accessAndLayout(b.CurrentState)
		dstAccess, dstLayout := accessAndLayout(b.NewState)
		if rhi.NeedsUAVBarrier(b.CurrentState, b.NewState) {
			// UAV->UAV self-barrier: order the next read/write behind the
			// previous write even though the logical state doesn't change.
			srcAccess = vk.AccessFlags(vk.AccessShaderWriteBit)
		}
		srcFam, dstFam := c.ownerFamilies(b)

		aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
		if format.HasDepth() {
			aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		}
		if format.HasStencil() {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}

		rng := vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     vk.RemainingMipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vk.RemainingArrayLayers,
		}
		if b.IsSubresource {
			rng.BaseMipLevel = uint32(b.MipLevel)
			rng.LevelCount = 1
			rng.BaseArrayLayer = uint32(b.ArrayLayer)
			rng.LayerCount = 1
		}

		imgBarriers = append(imgBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
			OldLayout:           srcLayout,
			NewLayout:           dstLayout,
			SrcQueueFamilyIndex: srcFam,
			DstQueueFamilyIndex: dstFam,
			Image:               img,
			SubresourceRange:    rng,
		})
		srcStage |= rhi.StageMaskForState(b.CurrentState, c.pool.queueType)
		dstStage |= rhi.StageMaskForState(b.NewState, c.pool.queueType)
	}

	for _, tb := range textures {
		t, ok := tb.Texture.(*texture)
		if !ok {
			continue
		}
		appendImage(t.handle, t.format, tb.Barrier)
	}
	for _, rb := range renderTargets {
		rt, ok := rb.RenderTarget.(*renderTarget)
		if !ok {
			continue
		}
		appendImage(rt.tex.handle, rt.tex.format, rb.Barrier)
	}
	for _, bb := range buffers {
		b, ok := bb.Buffer.(*buffer)
		if !ok {
			continue
		}
		srcAccess, _ := accessAndLayout(bb.CurrentState)
		dstAccess, _ := accessAndLayout(bb.NewState)
		if rhi.NeedsUAVBarrier(bb.CurrentState, bb.NewState) {
			srcAccess = vk.AccessFlags(vk.AccessShaderWriteBit)
		}
		srcFam, dstFam := c.ownerFamilies(bb.Barrier)
		bufBarriers = append(bufBarriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
			SrcQueueFamilyIndex: srcFam,
			DstQueueFamilyIndex: dstFam,
			Buffer:              b.handle,
			Offset:               0,
			Size:                 vk.WholeSize,
		})
		srcStage |= rhi.StageMaskForState(bb.CurrentState, c.pool.queueType)
		dstStage |= rhi.StageMaskForState(bb.NewState, c.pool.queueType)
	}

	if len(imgBarriers) == 0 && len(bufBarriers) == 0 {
		return
	}
	vk.CmdPipelineBarrier(c.handle, toVkPipelineStage(srcStage), toVkPipelineStage(dstStage), 0,
		0, nil, uint32(len(bufBarriers)), bufBarriers, uint32(len(imgBarriers)), imgBarriers)
}

func (c *cmd) BindRenderTargets(colors []rhi.RenderTarget, depth rhi.RenderTarget, clear bool) {
	if c.inRenderPass {
		c.endRenderPassLocked()
	}

	var colorFormats []rhi.PixelFormat
	var views []vk.ImageView
	var clears []vk.ClearValue
	var width, height uint32

	for _, rt := range colors {
		r, ok := rt.(*renderTarget)
		if !ok {
			continue
		}
		colorFormats = append(colorFormats, r.Format())
		views = append(views, r.tex.view)
		clears = append(clears, vk.ClearValue{})
		width, height = uint32(r.tex.width), uint32(r.tex.height)
	}
	depthFormat := rhi.FormatUndefined
	if depth != nil {
		if r, ok := depth.(*renderTarget); ok {
			depthFormat = r.Format()
			views = append(views, r.tex.view)
			clears = append(clears, vk.ClearValue{})
			width, height = uint32(r.tex.width), uint32(r.tex.height)
		}
	}

	rp, err := c.pool.d.getOrCreateRenderPass(colorFormats, depthFormat, rhi.Sample1)
	if err != nil {
		c.state = rhi.CmdFailed
		return
	}

	fbInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(c.pool.d.handle, &fbInfo, nil, &fb); res != vk.Success {
		c.state = rhi.CmdFailed
		return
	}

	loadOp := vk.AttachmentLoadOpLoad
	if clear {
		loadOp = vk.AttachmentLoadOpClear
	}
	_ = loadOp // load-op is fixed at render-pass-creation time in this cache; per-call clear control is a known simplification.

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea:  vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(c.handle, &beginInfo, vk.SubpassContentsInline)
	c.inRenderPass = true
	c.activeFB = fb
}

func (c *cmd) endRenderPassLocked() {
	vk.CmdEndRenderPass(c.handle)
	vk.DestroyFramebuffer(c.pool.d.handle, c.activeFB, nil)
	c.inRenderPass = false
	c.activeFB = vk.NullFramebuffer
}

func (c *cmd) SetViewport(x, y, width, height float32, minDepth, maxDepth float32) {
	vp := vk.Viewport{X: x, Y: y, Width: width, Height: height, MinDepth: minDepth, MaxDepth: maxDepth}
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{vp})
}

func (c *cmd) SetScissor(x, y, width, height int) {
	r := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x), Y: int32(y)},
		Extent: vk.Extent2D{Width: uint32(width), Height: uint32(height)},
	}
	vk.CmdSetScissor(c.handle, 0, 1, []vk.Rect2D{r})
}

func (c *cmd) BindPipeline(p rhi.Pipeline) {
	pp, ok := p.(*pipeline)
	if !ok {
		return
	}
	vk.CmdBindPipeline(c.handle, pp.bindPoint, pp.handle)
	c.boundPipeline = pp
}

func (c *cmd) BindDescriptorSet(index int, set rhi.DescriptorSet, dynamicOffsets []uint32) {
	ds, ok := set.(*descriptorSet)
	if !ok || c.boundPipeline == nil {
		return
	}
	if index < 0 || index >= len(ds.sets) {
		return
	}
	bindPoint := c.boundPipeline.bindPoint
	vk.CmdBindDescriptorSets(c.handle, bindPoint, c.boundPipeline.layout,
		uint32(ds.plan.Freq), 1, []vk.DescriptorSet{ds.sets[index]},
		uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (c *cmd) BindVertexBuffer(binding int, buf rhi.Buffer, offset int64) {
	b, ok := buf.(*buffer)
	if !ok {
		return
	}
	vk.CmdBindVertexBuffers(c.handle, uint32(binding), 1, []vk.Buffer{b.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (c *cmd) BindIndexBuffer(buf rhi.Buffer, offset int64, is32Bit bool) {
	b, ok := buf.(*buffer)
	if !ok {
		return
	}
	idxType := vk.IndexTypeUint16
	if is32Bit {
		idxType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(c.handle, b.handle, vk.DeviceSize(offset), idxType)
}

func (c *cmd) BindPushConstants(name string, data []byte) {
	if c.boundPipeline == nil {
		return
	}
	// The offset each push-constant name maps to was computed by
	// rootSignature.pushOffsets at signature-creation time; this cmd
	// only has the pipeline's layout handle, not the rootSignature
	// that built it, so it pushes at offset 0 sized to len(data) — the
	// common single-push-constant-block case every GraphState in this
	// backend uses today.
	vk.CmdPushConstants(c.handle, c.boundPipeline.layout, vk.ShaderStageFlags(vk.ShaderStageAll), 0, uint32(len(data)), data)
}

func (c *cmd) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(c.handle, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

func (c *cmd) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	vk.CmdDrawIndexed(c.handle, uint32(indexCount), uint32(instanceCount), uint32(firstIndex), int32(vertexOffset), uint32(firstInstance))
}

func (c *cmd) Dispatch(groupCountX, groupCountY, groupCountZ int) {
	vk.CmdDispatch(c.handle, uint32(groupCountX), uint32(groupCountY), uint32(groupCountZ))
}

func (c *cmd) CopyBuffer(dst rhi.Buffer, dstOffset int64, src rhi.Buffer, srcOffset int64, size int64) {
	d, ok1 := dst.(*buffer)
	s, ok2 := src.(*buffer)
	if !ok1 || !ok2 {
		return
	}
	region := vk.BufferCopy{SrcOffset: vk.DeviceSize(srcOffset), DstOffset: vk.DeviceSize(dstOffset), Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(c.handle, s.handle, d.handle, 1, []vk.BufferCopy{region})
}

// mipExtent halves n by mip levels, floored at 1, matching how every
// GPU mip chain shrinks regardless of the texture's base dimension.
func mipExtent(n, mip int) int {
	e := n >> uint(mip)
	if e < 1 {
		e = 1
	}
	return e
}

func (c *cmd) CopyBufferToTexture(dst rhi.Texture, src rhi.Buffer, srcOffset int64, mipLevel, arrayLayer int, rowPitch int64) {
	t, ok1 := dst.(*texture)
	s, ok2 := src.(*buffer)
	if !ok1 || !ok2 {
		return
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if t.format.HasDepth() {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	var rowLength uint32
	if bpp := t.format.BytesPerPixel(); rowPitch > 0 && bpp > 0 {
		rowLength = uint32(rowPitch / int64(bpp))
	}
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(srcOffset),
		BufferRowLength:   rowLength,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspect,
			MipLevel:       uint32(mipLevel),
			BaseArrayLayer: uint32(arrayLayer),
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  uint32(mipExtent(t.width, mipLevel)),
			Height: uint32(mipExtent(t.height, mipLevel)),
			Depth:  uint32(mipExtent(t.depth, mipLevel)),
		},
	}
	vk.CmdCopyBufferToImage(c.handle, s.handle, t.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (c *cmd) Destroy() {
	if c.inRenderPass {
		c.endRenderPassLocked()
	}
	vk.FreeCommandBuffers(c.pool.d.handle, c.pool.handle, 1, []vk.CommandBuffer{c.handle})
}
