// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NoSW/Axe-sub000/internal/rlog"
)

// DescriptorInfo is one binding slot of a built root signature: the
// backend-neutral result of merging shader reflection with the static
// sampler/flag overrides a RootSignatureDesc supplies. Concrete
// backends (rhi/vkb) convert a RootLayout's DescriptorInfos into their
// native binding/layout objects.
type DescriptorInfo struct {
	Name    string
	Reg     uint32 // binding location
	Size    uint32 // array size (1 for a scalar resource)
	Type    DescriptorType
	Dim     TextureDimension
	Stages  ShaderStage
	Freq    UpdateFrequency

	IsRootDescriptor bool // root constant or rootcbv-renamed dynamic uniform buffer
	IsStaticSampler  bool
	HandleIndex      uint32 // offset within its frequency's descriptor layout
}

// PushConstantRange is one root-constant block, sized and staged from
// its originating ShaderResource.
type PushConstantRange struct {
	Name   string
	Stages ShaderStage
	Size   uint32
}

// FrequencyLayout is the per-UpdateFrequency slice of a RootLayout:
// every non-static-sampler descriptor bound at that frequency, in the
// binding order a backend's descriptor-set-layout call expects.
type FrequencyLayout struct {
	Descriptors        []*DescriptorInfo
	DynamicDescriptors []*DescriptorInfo // rootcbv-renamed, bound via dynamic offsets
}

// RootLayout is the fully-resolved, backend-neutral output of building
// a root signature from merged shader reflection: one DescriptorInfo
// per unique resource, grouped by update frequency, plus push-constant
// ranges and a name index. It mirrors the teacher-facing algorithm in
// VulkanRootSignature::_create, kept backend-neutral so rhi/vkb and
// rhi/d3d12b share one implementation of the (error-prone, per spec.md's
// Open Questions) de-duplication and frequency-bucketing logic.
type RootLayout struct {
	Type          PipelineType
	Descriptors   []*DescriptorInfo
	PushConstants []PushConstantRange
	ByFrequency   [4]FrequencyLayout
	ByName        map[string]*DescriptorInfo
}

// BuildRootLayout merges the reflections of desc.Shaders and resolves
// them into a RootLayout. Resources are de-duplicated first by name,
// then by (Type, Set, Binding) — spec.md's Open
// Questions calls out that this secondary rule can silently merge two
// distinct resources that happen to share a (type, set, binding) triple
// across shaders that were never meant to share one; this
// implementation logs a warning rather than erroring, and only hard
// errors when a name collision's set/binding actually disagree (a
// genuine author mistake the original treats as fatal).
func BuildRootLayout(desc RootSignatureDesc) (*RootLayout, error) {
	if len(desc.Shaders) == 0 {
		return nil, fmt.Errorf("rhi: %w: root signature needs at least one shader", ErrConfig)
	}

	var merged []ShaderResource
	pipelineType := PipelineUndefined
	for _, shader := range desc.Shaders {
		refl := shader.Reflection()
		if refl == nil {
			return nil, fmt.Errorf("rhi: %w: shader has no reflection", ErrReflect)
		}
		switch {
		case refl.Stages&StageComp != 0:
			pipelineType = PipelineCompute
		case refl.Stages&StageRayTracing != 0:
			pipelineType = PipelineRaytracing
		default:
			pipelineType = PipelineGraphics
		}

		for _, res := range refl.Resources {
			idx, byName := findMergeTarget(merged, res)
			switch {
			case idx < 0:
				merged = append(merged, res)
			case byName:
				if merged[idx].Set != res.Set || merged[idx].Binding != res.Binding {
					return nil, fmt.Errorf("rhi: %w: resource %q has mismatching set/binding across stages", ErrReflect, res.Name)
				}
				merged[idx].Stage |= res.Stage
			default:
				rlog.Warnf("rootsig: resources %q and %q share (type=%v set=%d binding=%d); treating as one binding",
					merged[idx].Name, res.Name, res.Type, res.Set, res.Binding)
				merged[idx].Stage |= res.Stage
			}
		}
	}

	layout := &RootLayout{Type: pipelineType, ByName: map[string]*DescriptorInfo{}}
	poolSizes := map[uint32]map[DescriptorType]uint32{}

	for _, res := range merged {
		info := &DescriptorInfo{
			Name: res.Name, Reg: res.Binding, Size: res.Size,
			Type: res.Type, Dim: res.Dim, Stages: res.Stage,
		}
		if info.Size == 0 {
			info.Size = 1
		}

		if res.Type == DescriptorRootConstant {
			info.IsRootDescriptor = true
			layout.Descriptors = append(layout.Descriptors, info)
			layout.PushConstants = append(layout.PushConstants, PushConstantRange{
				Name: res.Name, Stages: res.Stage, Size: res.Size,
			})
			layout.ByName[res.Name] = info
			continue
		}

		freq := UpdateFrequency(res.Set)
		if int(freq) >= len(layout.ByFrequency) {
			return nil, fmt.Errorf("rhi: %w: resource %q uses update-frequency set %d, only 0-3 are supported", ErrConfig, res.Name, res.Set)
		}
		info.Freq = freq

		// rootcbv naming convention: a uniform buffer named with a
		// "rootcbv" substring is retyped to a dynamic root descriptor,
		// matching the teacher-facing Vulkan convention verbatim.
		if res.Type == DescriptorUniformBuffer && strings.Contains(strings.ToLower(res.Name), "rootcbv") {
			if info.Size != 1 {
				rlog.Warnf("rootsig: descriptor %q: rootcbv naming ignored for arrays (size=%d)", res.Name, info.Size)
			} else {
				info.Type = DescriptorUniformBufferDynamic
				info.IsRootDescriptor = true
				layout.ByFrequency[freq].DynamicDescriptors = append(layout.ByFrequency[freq].DynamicDescriptors, info)
			}
		}

		if isStatic, bindingName := isStaticSampler(desc, res.Name); isStatic {
			info.IsStaticSampler = true
			_ = bindingName
		} else if !info.IsRootDescriptor {
			layout.ByFrequency[freq].Descriptors = append(layout.ByFrequency[freq].Descriptors, info)
		}

		layout.Descriptors = append(layout.Descriptors, info)
		if _, dup := layout.ByName[res.Name]; dup {
			return nil, fmt.Errorf("rhi: %w: duplicate descriptor name %q", ErrConfig, res.Name)
		}
		layout.ByName[res.Name] = info

		if !info.IsStaticSampler && !info.IsRootDescriptor {
			if poolSizes[uint32(freq)] == nil {
				poolSizes[uint32(freq)] = map[DescriptorType]uint32{}
			}
			poolSizes[uint32(freq)][info.Type] += info.Size
		}
	}

	// Assign per-frequency handle offsets: least-frequently-changed
	// sets are built the original's way (highest frequency index last),
	// sorted by descriptor type then binding so backends can emit a
	// stable descriptor-set-layout binding order.
	for f := range layout.ByFrequency {
		fl := &layout.ByFrequency[f]
		sort.Slice(fl.Descriptors, func(i, j int) bool {
			if fl.Descriptors[i].Type != fl.Descriptors[j].Type {
				return fl.Descriptors[i].Type < fl.Descriptors[j].Type
			}
			return fl.Descriptors[i].Reg < fl.Descriptors[j].Reg
		})
		var cumulative uint32
		for _, info := range fl.Descriptors {
			info.HandleIndex = cumulative
			cumulative += info.Size
		}

		sort.Slice(fl.DynamicDescriptors, func(i, j int) bool {
			return fl.DynamicDescriptors[i].Reg < fl.DynamicDescriptors[j].Reg
		})
		for i, info := range fl.DynamicDescriptors {
			info.HandleIndex = uint32(i)
		}
	}

	return layout, nil
}

// findMergeTarget returns the index in merged that res should combine
// with, and whether the match was found by name (true) or by
// (type, set, binding) (false). Returns (-1, false) if res is new.
func findMergeTarget(merged []ShaderResource, res ShaderResource) (int, bool) {
	byLocation := -1
	for i, m := range merged {
		if m.Name != "" && res.Name != "" && m.Name == res.Name {
			return i, true
		}
		if byLocation < 0 && m.Type == res.Type && m.Set == res.Set && m.Binding == res.Binding {
			byLocation = i
		}
	}
	if byLocation >= 0 {
		return byLocation, false
	}
	return -1, false
}

func isStaticSampler(desc RootSignatureDesc, name string) (bool, string) {
	for _, n := range desc.StaticSamplerNames {
		if n == name {
			return true, n
		}
	}
	return false, ""
}
