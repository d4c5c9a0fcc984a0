// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// descriptorSet implements rhi.DescriptorSet: one vk.DescriptorPool
// sized for plan.MaxSets instances plus plan.MaxSets native
// vk.DescriptorSets allocated from rs.setLayouts[plan.Freq], each
// pre-bound to the backend's null texture at creation so no set
// instance ever exposes an unbound binding to a shader before the
// caller's first Update, per VulkanDescriptorSet::_create.
type descriptorSet struct {
	d      *device
	rs     *rootSignature
	plan   *rhi.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
	byName map[string]*rhi.DescriptorInfo
}

func newDescriptorSet(rs *rootSignature, freq rhi.UpdateFrequency, maxSets int) (rhi.DescriptorSet, error) {
	plan, err := rhi.BuildDescriptorSetLayout(rs.layout, freq, maxSets)
	if err != nil {
		return nil, err
	}

	poolSizes := map[vk.DescriptorType]uint32{}
	for _, info := range plan.Descriptors {
		poolSizes[toVkDescriptorType(info.Type)] += info.Size * uint32(maxSets)
	}
	if len(plan.DynamicData) > 0 {
		poolSizes[vk.DescriptorTypeUniformBufferDynamic] += uint32(len(plan.DynamicData) * maxSets)
	}
	if len(poolSizes) == 0 {
		return nil, fmt.Errorf("vkb: %w: descriptor set at frequency %d has no bindable descriptors", rhi.ErrConfig, freq)
	}

	var sizes []vk.DescriptorPoolSize
	for t, count := range poolSizes {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: count})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(rs.d.handle, &poolInfo, nil, &pool); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateDescriptorPool failed: %v", rhi.ErrResource, res)
	}

	layouts := make([]vk.DescriptorSetLayout, maxSets)
	for i := range layouts {
		layouts[i] = rs.setLayouts[freq]
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(maxSets),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, maxSets)
	if res := vk.AllocateDescriptorSets(rs.d.handle, &allocInfo, sets); res != vk.Success {
		vk.DestroyDescriptorPool(rs.d.handle, pool, nil)
		return nil, fmt.Errorf("vkb: %w: vkAllocateDescriptorSets failed: %v", rhi.ErrResource, res)
	}

	ds := &descriptorSet{d: rs.d, rs: rs, plan: plan, pool: pool, sets: sets, byName: map[string]*rhi.DescriptorInfo{}}
	for _, info := range plan.Descriptors {
		ds.byName[info.Name] = info
	}

	if err := ds.writeNullDefaults(); err != nil {
		ds.Destroy()
		return nil, err
	}

	alloc.For("vkb-descset").Alloc(0)
	return ds, nil
}

// writeNullDefaults binds the device's null texture/buffer/sampler
// defaults into every resource-reading slot of every allocated set
// instance, so a shader that reads an as-yet-unupdated binding sees
// defined (if useless) data rather than undefined behavior.
func (ds *descriptorSet) writeNullDefaults() error {
	var writes []vk.WriteDescriptorSet
	var imageInfos []vk.DescriptorImageInfo   // kept alive until vkUpdateDescriptorSets returns
	var bufferInfos []vk.DescriptorBufferInfo

	for _, info := range ds.plan.Descriptors {
		if !rhi.NeedsNullDefault(info.Type) {
			continue
		}
		vkType := toVkDescriptorType(info.Type)
		write := vk.WriteDescriptorSet{
			SType: vk.StructureTypeWriteDescriptorSet, DstBinding: info.Reg,
			DescriptorCount: 1, DescriptorType: vkType,
		}
		switch info.Type {
		case rhi.DescriptorTexture, rhi.DescriptorRWTexture, rhi.DescriptorTextureCube, rhi.DescriptorCombinedImageSampler:
			layout := vk.ImageLayoutShaderReadOnlyOptimal
			if info.Type == rhi.DescriptorRWTexture {
				layout = vk.ImageLayoutGeneral
			}
			nullTex := ds.d.nullTexByDim[info.Dim]
			if nullTex == nil {
				nullTex = ds.d.nullTex
			}
			imageInfos = append(imageInfos, vk.DescriptorImageInfo{ImageView: nullTex.view, ImageLayout: layout})
			write.PImageInfo = imageInfos[len(imageInfos)-1:]
		case rhi.DescriptorSampler:
			imageInfos = append(imageInfos, vk.DescriptorImageInfo{Sampler: ds.d.nullSamp.handle})
			write.PImageInfo = imageInfos[len(imageInfos)-1:]
		case rhi.DescriptorBuffer, rhi.DescriptorRWBuffer, rhi.DescriptorUniformBuffer,
			rhi.DescriptorTexelBuffer, rhi.DescriptorRWTexelBuffer:
			bufferInfos = append(bufferInfos, vk.DescriptorBufferInfo{Buffer: ds.d.nullBuf.handle, Offset: 0, Range: vk.WholeSize})
			write.PBufferInfo = bufferInfos[len(bufferInfos)-1:]
		default:
			continue
		}
		for _, set := range ds.sets {
			w := write
			w.DstSet = set
			writes = append(writes, w)
		}
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(ds.d.handle, uint32(len(writes)), writes, 0, nil)
	}
	return nil
}

func (ds *descriptorSet) Update(index int, updates []rhi.DescriptorUpdate) error {
	if index < 0 || index >= len(ds.sets) {
		return fmt.Errorf("vkb: %w: descriptor set index %d out of range [0,%d)", rhi.ErrState, index, len(ds.sets))
	}
	var writes []vk.WriteDescriptorSet
	var bufferInfos []vk.DescriptorBufferInfo
	var imageInfos []vk.DescriptorImageInfo

	for _, upd := range updates {
		info := ds.byName[upd.Name]
		if err := rhi.ValidateUpdate(ds.plan, info, upd); err != nil {
			return err
		}
		vkType := toVkDescriptorType(info.Type)
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ds.sets[index],
			DstBinding:      info.Reg,
			DstArrayElement: uint32(upd.ArrayOffset),
			DescriptorCount: uint32(len(upd.Resources)),
			DescriptorType:  vkType,
		}
		switch info.Type {
		case rhi.DescriptorTexture, rhi.DescriptorRWTexture, rhi.DescriptorTextureCube, rhi.DescriptorCombinedImageSampler, rhi.DescriptorInputAttachment:
			layout := vk.ImageLayoutShaderReadOnlyOptimal
			if info.Type == rhi.DescriptorRWTexture {
				layout = vk.ImageLayoutGeneral
			}
			start := len(imageInfos)
			for _, r := range upd.Resources {
				t, ok := r.(*texture)
				if !ok {
					return fmt.Errorf("vkb: %w: update for %q: resource is not a Texture", rhi.ErrState, info.Name)
				}
				imageInfos = append(imageInfos, vk.DescriptorImageInfo{ImageView: t.view, ImageLayout: layout})
			}
			write.PImageInfo = imageInfos[start:]
		case rhi.DescriptorSampler:
			start := len(imageInfos)
			for _, r := range upd.Resources {
				s, ok := r.(*sampler)
				if !ok {
					return fmt.Errorf("vkb: %w: update for %q: resource is not a Sampler", rhi.ErrState, info.Name)
				}
				imageInfos = append(imageInfos, vk.DescriptorImageInfo{Sampler: s.handle})
			}
			write.PImageInfo = imageInfos[start:]
		default:
			start := len(bufferInfos)
			for i, r := range upd.Resources {
				b, ok := r.(*buffer)
				if !ok {
					return fmt.Errorf("vkb: %w: update for %q: resource is not a Buffer", rhi.ErrState, info.Name)
				}
				rng := vk.WholeSize
				var off int64
				if i < len(upd.Ranges) {
					off = upd.Ranges[i].Offset
					rng = vk.DeviceSize(upd.Ranges[i].Size)
				}
				bufferInfos = append(bufferInfos, vk.DescriptorBufferInfo{Buffer: b.handle, Offset: vk.DeviceSize(off), Range: rng})
			}
			write.PBufferInfo = bufferInfos[start:]
		}
		writes = append(writes, write)
	}

	if len(writes) > 0 {
		vk.UpdateDescriptorSets(ds.d.handle, uint32(len(writes)), writes, 0, nil)
	}
	return nil
}

func (ds *descriptorSet) Destroy() {
	vk.DestroyDescriptorPool(ds.d.handle, ds.pool, nil)
	alloc.For("vkb-descset").Free(0)
}
