// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// rootSignature implements rhi.RootSignature. It wraps the
// backend-neutral rhi.RootLayout with the native objects a Vulkan
// pipeline actually binds against: one vk.DescriptorSetLayout per
// update-frequency slot (always 4, even when empty, so every pipeline
// built from this signature sees the same contiguous set array) and a
// single vk.PipelineLayout, mirroring VulkanRootSignature::_create.
type rootSignature struct {
	d              *device
	layout         *rhi.RootLayout
	setLayouts     [4]vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	pushOffsets    map[string]uint32 // PushConstantRange.Name -> byte offset within the push-constant block
}

func newRootSignature(d *device, desc rhi.RootSignatureDesc) (rhi.RootSignature, error) {
	layout, err := rhi.BuildRootLayout(desc)
	if err != nil {
		return nil, err
	}

	nameToSampler := map[string]vk.Sampler{}
	for i, name := range desc.StaticSamplerNames {
		if i >= len(desc.StaticSamplers) {
			break
		}
		if s, ok := desc.StaticSamplers[i].(*sampler); ok {
			nameToSampler[name] = s.handle
		}
	}

	rs := &rootSignature{d: d, layout: layout, pushOffsets: map[string]uint32{}}

	for f := range rs.setLayouts {
		fl := layout.ByFrequency[f]
		var bindings []vk.DescriptorSetLayoutBinding
		for _, info := range fl.Descriptors {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         info.Reg,
				DescriptorType:  toVkDescriptorType(info.Type),
				DescriptorCount: info.Size,
				StageFlags:      toVkShaderStageFlags(info.Stages),
			})
		}
		for _, info := range fl.DynamicDescriptors {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         info.Reg,
				DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
				DescriptorCount: info.Size,
				StageFlags:      toVkShaderStageFlags(info.Stages),
			})
		}
		for _, info := range layout.Descriptors {
			if !info.IsStaticSampler || int(info.Freq) != f {
				continue
			}
			h, ok := nameToSampler[info.Name]
			if !ok {
				continue
			}
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:            info.Reg,
				DescriptorType:     vk.DescriptorTypeSampler,
				DescriptorCount:    1,
				StageFlags:         toVkShaderStageFlags(info.Stages),
				PImmutableSamplers: []vk.Sampler{h},
			})
		}

		info := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		var sl vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(d.handle, &info, nil, &sl); res != vk.Success {
			rs.destroySetLayouts(f)
			return nil, fmt.Errorf("vkb: %w: vkCreateDescriptorSetLayout failed for frequency %d: %v", rhi.ErrResource, f, res)
		}
		rs.setLayouts[f] = sl
	}

	var pushRanges []vk.PushConstantRange
	var offset uint32
	for _, pc := range layout.PushConstants {
		rs.pushOffsets[pc.Name] = offset
		pushRanges = append(pushRanges, vk.PushConstantRange{
			StageFlags: toVkShaderStageFlags(pc.Stages),
			Offset:     offset,
			Size:       pc.Size,
		})
		offset += pc.Size
	}

	plInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(rs.setLayouts)),
		PSetLayouts:            rs.setLayouts[:],
		PushConstantRangeCount: uint32(len(pushRanges)),
		PPushConstantRanges:    pushRanges,
	}
	var pl vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.handle, &plInfo, nil, &pl); res != vk.Success {
		rs.destroySetLayouts(len(rs.setLayouts))
		return nil, fmt.Errorf("vkb: %w: vkCreatePipelineLayout failed: %v", rhi.ErrResource, res)
	}
	rs.pipelineLayout = pl

	alloc.For("vkb-rootsig").Alloc(0)
	return rs, nil
}

func (rs *rootSignature) destroySetLayouts(upTo int) {
	for i := 0; i < upTo; i++ {
		if rs.setLayouts[i] != vk.NullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(rs.d.handle, rs.setLayouts[i], nil)
		}
	}
}

func (rs *rootSignature) Reflection() *rhi.PipelineReflection {
	// RootLayout does not retain the originating PipelineReflection, so
	// this always returns nil. NewGraphicsPipeline/NewComputePipeline
	// take Shader directly, and Shader.Reflection returns the merged
	// reflection.
	return nil
}

func (rs *rootSignature) NewDescriptorSet(freq rhi.UpdateFrequency, maxSets int) (rhi.DescriptorSet, error) {
	return newDescriptorSet(rs, freq, maxSets)
}

func (rs *rootSignature) Destroy() {
	vk.DestroyPipelineLayout(rs.d.handle, rs.pipelineLayout, nil)
	rs.destroySetLayouts(len(rs.setLayouts))
	alloc.For("vkb-rootsig").Free(0)
}
