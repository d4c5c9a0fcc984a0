// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import "fmt"

// DescriptorSetLayout is the backend-neutral allocation plan for one
// RootSignature.NewDescriptorSet call: which DescriptorInfos belong to
// this frequency, how many instances (maxSets) to allocate, and which
// slots need a null-descriptor default at creation so that a shader
// never reads an unbound binding before the caller's first Update.
//
// Concrete backends use this to build their native descriptor pool and
// issue one write per unbound slot per set instance at creation time,
// mirroring VulkanDescriptorSet::_create's first-update pass.
type DescriptorSetLayout struct {
	Freq        UpdateFrequency
	MaxSets     int
	Descriptors []*DescriptorInfo // non-root, non-static-sampler descriptors at this frequency
	DynamicData []uint32          // one dynamic offset slot per dynamic descriptor, zero-initialized
}

// BuildDescriptorSetLayout validates freq against layout and returns the
// allocation plan for it. It fails with ErrConfig if the root signature
// has no descriptors at all at that frequency and no dynamic
// descriptors either — spec.md requires every DescriptorSet to map to a
// populated RootSignature layout slot, matching the original's "layout
// in RootSignature is null at updateFreq" check.
func BuildDescriptorSetLayout(layout *RootLayout, freq UpdateFrequency, maxSets int) (*DescriptorSetLayout, error) {
	if int(freq) < 0 || int(freq) >= len(layout.ByFrequency) {
		return nil, fmt.Errorf("rhi: %w: update frequency %d out of range", ErrConfig, freq)
	}
	if maxSets <= 0 {
		return nil, fmt.Errorf("rhi: %w: maxSets must be positive", ErrConfig)
	}
	fl := layout.ByFrequency[freq]
	if len(fl.Descriptors) == 0 && len(fl.DynamicDescriptors) == 0 {
		return nil, fmt.Errorf("rhi: %w: root signature has no descriptor set layout at frequency %d", ErrConfig, freq)
	}
	return &DescriptorSetLayout{
		Freq:        freq,
		MaxSets:     maxSets,
		Descriptors: fl.Descriptors,
		DynamicData: make([]uint32, len(fl.DynamicDescriptors)),
	}, nil
}

// NeedsNullDefault reports whether a descriptor of the given type must
// be bound to a backend-owned null/default resource at DescriptorSet
// creation, before any caller Update call. Samplers, textures
// (including cube textures) and every buffer-shaped type need one;
// push constants and static samplers do not (they have no per-set
// binding slot to default). Combined image-sampler slots are not
// defaulted: they stay unbound until the first Update.
func NeedsNullDefault(t DescriptorType) bool {
	switch t {
	case DescriptorSampler, DescriptorTexture, DescriptorTextureCube, DescriptorRWTexture,
		DescriptorBuffer, DescriptorRWBuffer, DescriptorUniformBuffer,
		DescriptorTexelBuffer, DescriptorRWTexelBuffer:
		return true
	default:
		return false
	}
}

// ValidateUpdate checks one DescriptorUpdate against the resolved
// DescriptorInfo it targets (looked up by name if Name is set, else by
// positional Index into info), returning ErrState for any mismatch: a
// static-sampler update (immutable after root-signature creation), a
// resource-count mismatch against the descriptor's declared array
// size, or updating a binding that does not exist in this set's
// frequency at all.
func ValidateUpdate(set *DescriptorSetLayout, info *DescriptorInfo, upd DescriptorUpdate) error {
	if info == nil {
		return fmt.Errorf("rhi: %w: no descriptor named %q at this frequency", ErrState, upd.Name)
	}
	if info.IsStaticSampler {
		return fmt.Errorf("rhi: %w: descriptor %q is a static sampler and cannot be updated", ErrState, info.Name)
	}
	if info.Freq != set.Freq {
		return fmt.Errorf("rhi: %w: descriptor %q belongs to frequency %d, not %d", ErrState, info.Name, info.Freq, set.Freq)
	}
	if len(upd.Resources) == 0 {
		return fmt.Errorf("rhi: %w: update for %q supplies no resources", ErrState, info.Name)
	}
	if uint32(upd.ArrayOffset+len(upd.Resources)) > info.Size {
		return fmt.Errorf("rhi: %w: update for %q writes past its declared array size %d", ErrState, info.Name, info.Size)
	}
	return nil
}
