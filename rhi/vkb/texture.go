// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// texture implements rhi.Texture. A texture either owns its image and
// memory (the common case) or borrows one created elsewhere (a
// swapchain backbuffer, via desc.NativeHandle), mirroring the
// teacher's image-vs-borrowed-image split.
type texture struct {
	d      *device
	handle vk.Image
	view   vk.ImageView
	mem    vk.DeviceMemory // zero when borrowed
	owned  bool

	width, height, depth int
	arraySize             int
	mipLevels             int
	format                rhi.PixelFormat
	descriptors           rhi.DescriptorType
}

func newTexture(d *device, desc rhi.TextureDesc) (rhi.Texture, error) {
	if desc.NativeHandle != nil {
		return wrapBorrowedTexture(d, desc)
	}

	vkFmt := toVkFormat(desc.Format)
	if vkFmt == vk.FormatUndefined {
		return nil, fmt.Errorf("vkb: %w: texture %q: unsupported format %v", rhi.ErrConfig, desc.Name, desc.Format)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	if desc.Descriptors&rhi.DescriptorTexture != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if desc.Descriptors&rhi.DescriptorRWTexture != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if desc.Format.IsDepthOrStencil() {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	} else {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}

	imgType := vk.ImageType2d
	if desc.Flags&rhi.TextureCreateForce3D != 0 || desc.Depth > 1 {
		imgType = vk.ImageType3d
	}

	var createFlags vk.ImageCreateFlags
	if desc.Flags&rhi.TextureCreateCubemap != 0 {
		createFlags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	imgInfo := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		Flags:       createFlags,
		ImageType:   imgType,
		Format:      vkFmt,
		Extent:      vk.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), Depth: uint32(desc.Depth)},
		MipLevels:   uint32(desc.MipLevels),
		ArrayLayers: uint32(desc.ArraySize),
		Samples:     toVkSampleCount(desc.SampleCount),
		Tiling:      vk.ImageTilingOptimal,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var img vk.Image
	if res := vk.CreateImage(d.handle, &imgInfo, nil, &img); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateImage failed for %q: %v", rhi.ErrResource, desc.Name, res)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, img, &req)
	req.Deref()

	memIdx, err := findMemoryType(d.a, req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.handle, img, nil)
		return nil, fmt.Errorf("vkb: %w: texture %q: %v", rhi.ErrResource, desc.Name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memIdx,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.handle, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyImage(d.handle, img, nil)
		return nil, fmt.Errorf("vkb: %w: texture %q: vkAllocateMemory failed: %v", rhi.ErrResource, desc.Name, res)
	}
	if res := vk.BindImageMemory(d.handle, img, mem, 0); res != vk.Success {
		vk.FreeMemory(d.handle, mem, nil)
		vk.DestroyImage(d.handle, img, nil)
		return nil, fmt.Errorf("vkb: %w: texture %q: vkBindImageMemory failed: %v", rhi.ErrResource, desc.Name, res)
	}

	view, err := createImageView(d, img, vkFmt, desc)
	if err != nil {
		vk.FreeMemory(d.handle, mem, nil)
		vk.DestroyImage(d.handle, img, nil)
		return nil, err
	}

	alloc.For("vkb-texture").Alloc(int64(req.Size))
	return &texture{
		d: d, handle: img, view: view, mem: mem, owned: true,
		width: desc.Width, height: desc.Height, depth: desc.Depth,
		arraySize: desc.ArraySize, mipLevels: desc.MipLevels,
		format: desc.Format, descriptors: desc.Descriptors,
	}, nil
}

// wrapBorrowedTexture wraps an image this package does not own (a
// swapchain backbuffer), taking only a view over it.
func wrapBorrowedTexture(d *device, desc rhi.TextureDesc) (rhi.Texture, error) {
	img, ok := desc.NativeHandle.(vk.Image)
	if !ok {
		return nil, fmt.Errorf("vkb: %w: texture %q: NativeHandle is not a vk.Image", rhi.ErrConfig, desc.Name)
	}
	vkFmt := toVkFormat(desc.Format)
	view, err := createImageView(d, img, vkFmt, desc)
	if err != nil {
		return nil, err
	}
	return &texture{
		d: d, handle: img, view: view, owned: false,
		width: desc.Width, height: desc.Height, depth: desc.Depth,
		arraySize: desc.ArraySize, mipLevels: desc.MipLevels,
		format: desc.Format, descriptors: desc.Descriptors,
	}, nil
}

func createImageView(d *device, img vk.Image, vkFmt vk.Format, desc rhi.TextureDesc) (vk.ImageView, error) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if desc.Format.HasDepth() {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if desc.Format.HasStencil() {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}

	dim := rhi.Dim2D
	if desc.Flags&rhi.TextureCreateCubemap != 0 {
		dim = rhi.DimCube
	} else if desc.ArraySize > 1 {
		dim = rhi.Dim2DArray
	} else if desc.Depth > 1 {
		dim = rhi.Dim3D
	}

	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: toVkImageViewType(dim),
		Format:   vkFmt,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     uint32(desc.MipLevels),
			BaseArrayLayer: 0,
			LayerCount:     uint32(desc.ArraySize),
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.handle, &info, nil, &view); res != vk.Success {
		return vk.NullImageView, fmt.Errorf("vkb: %w: texture %q: vkCreateImageView failed: %v", rhi.ErrResource, desc.Name, res)
	}
	return view, nil
}

// findMemoryType picks a memory type index satisfying typeBits and
// properties, mirroring the teacher's linear-scan
// chooseHeapFromMemoryTypeBits helper in driver/vk.
func findMemoryType(a *adapter, typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	a.memProps.Deref()
	for i := uint32(0); i < a.memProps.MemoryTypeCount; i++ {
		mt := a.memProps.MemoryTypes[i]
		mt.Deref()
		if typeBits&(1<<i) == 0 {
			continue
		}
		if vk.MemoryPropertyFlags(mt.PropertyFlags)&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type satisfies bits=%#x properties=%v", typeBits, properties)
}

func (t *texture) Width() int                      { return t.width }
func (t *texture) Height() int                     { return t.height }
func (t *texture) Depth() int                       { return t.depth }
func (t *texture) ArraySize() int                   { return t.arraySize }
func (t *texture) MipLevels() int                   { return t.mipLevels }
func (t *texture) Format() rhi.PixelFormat          { return t.format }
func (t *texture) Descriptors() rhi.DescriptorType  { return t.descriptors }

func (t *texture) Destroy() {
	vk.DestroyImageView(t.d.handle, t.view, nil)
	if t.owned {
		var req vk.MemoryRequirements
		vk.GetImageMemoryRequirements(t.d.handle, t.handle, &req)
		req.Deref()
		vk.DestroyImage(t.d.handle, t.handle, nil)
		vk.FreeMemory(t.d.handle, t.mem, nil)
		alloc.For("vkb-texture").Free(int64(req.Size))
	}
}
