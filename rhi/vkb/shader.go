// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"os"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// shaderStage is one loaded+reflected SPIR-V module within a Shader.
type shaderStage struct {
	stage      rhi.ShaderStage
	module     vk.ShaderModule
	entryPoint string
	specData   []byte
	specMap    []vk.SpecializationMapEntry
}

// shader implements rhi.Shader.
type shader struct {
	d      *device
	stages []shaderStage
	refl   *rhi.PipelineReflection
}

func newShader(d *device, desc rhi.ShaderDesc) (rhi.Shader, error) {
	if len(desc.Stages) == 0 {
		return nil, fmt.Errorf("vkb: %w: shader needs at least one stage", rhi.ErrConfig)
	}

	s := &shader{d: d}
	var stageRefls []rhi.StageReflection

	for _, sd := range desc.Stages {
		code, err := os.ReadFile(sd.FilePath)
		if err != nil {
			s.destroyModules()
			return nil, fmt.Errorf("vkb: %w: failed to read shader byte-code %q: %v", rhi.ErrConfig, sd.FilePath, err)
		}

		refl, err := parseSPIRV(code, sd.Stage)
		if err != nil {
			s.destroyModules()
			return nil, err
		}
		if sd.EntryPoint != "" {
			refl.EntryPoint = sd.EntryPoint
		}
		stageRefls = append(stageRefls, *refl)

		info := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint(len(code)),
			PCode:    bytesToUint32Slice(code),
		}
		var mod vk.ShaderModule
		if res := vk.CreateShaderModule(d.handle, &info, nil, &mod); res != vk.Success {
			s.destroyModules()
			return nil, fmt.Errorf("vkb: %w: vkCreateShaderModule failed for %q: %v", rhi.ErrResource, sd.FilePath, res)
		}

		ss := shaderStage{stage: sd.Stage, module: mod, entryPoint: refl.EntryPoint}
		for _, c := range desc.Constants {
			ss.specMap = append(ss.specMap, vk.SpecializationMapEntry{
				ConstantID: c.Index,
				Offset:     uint32(len(ss.specData)),
				Size:       uint(len(c.Blob)),
			})
			ss.specData = append(ss.specData, c.Blob...)
		}
		s.stages = append(s.stages, ss)
	}

	refl, err := rhi.MergeReflections(stageRefls)
	if err != nil {
		s.destroyModules()
		return nil, err
	}
	s.refl = refl

	alloc.For("vkb-shader").Alloc(0)
	return s, nil
}

// bytesToUint32Slice reinterprets a SPIR-V byte blob (already
// word-aligned and little-endian per the SPIR-V spec) as the []uint32
// vk.ShaderModuleCreateInfo.PCode expects, avoiding an extra copy
// through encoding/binary for what is typically a multi-KB blob.
func bytesToUint32Slice(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}

func (s *shader) Reflection() *rhi.PipelineReflection { return s.refl }

func (s *shader) destroyModules() {
	for _, st := range s.stages {
		vk.DestroyShaderModule(s.d.handle, st.module, nil)
	}
}

func (s *shader) Destroy() {
	s.destroyModules()
	alloc.For("vkb-shader").Free(0)
}
