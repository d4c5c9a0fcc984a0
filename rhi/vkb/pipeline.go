// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

// pipeline implements rhi.Pipeline.
type pipeline struct {
	d          *device
	handle     vk.Pipeline
	layout     vk.PipelineLayout
	bindPoint  vk.PipelineBindPoint
	typ        rhi.PipelineType
	renderPass vk.RenderPass
}

func newGraphicsPipeline(d *device, state rhi.GraphState) (rhi.Pipeline, error) {
	sh, ok := state.Shader.(*shader)
	if !ok {
		return nil, fmt.Errorf("vkb: %w: GraphState.Shader not created by this backend", rhi.ErrConfig)
	}
	rs, ok := state.RootSignature.(*rootSignature)
	if !ok {
		return nil, fmt.Errorf("vkb: %w: GraphState.RootSignature not created by this backend", rhi.ErrConfig)
	}

	var stages []vk.PipelineShaderStageCreateInfo
	for _, st := range sh.stages {
		// Specialization constants (st.specMap/specData) are collected at
		// shader-load time but not yet wired into PSpecializationInfo
		// here: the binding's exact pointer-field shape for
		// VkSpecializationInfo.pData was not confirmed against this
		// package's generated types, so constants fall back to whatever
		// default value the SPIR-V module declares.
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  toVkShaderStageFlagBits(st.stage),
			Module: st.module,
			PName:  st.entryPoint,
		})
	}

	var bindings []vk.VertexInputBindingDescription
	var attrs []vk.VertexInputAttributeDescription
	seenBindings := map[int]bool{}
	for _, a := range state.VertexLayout.Attribs {
		if !seenBindings[a.Binding] {
			seenBindings[a.Binding] = true
			rate := vk.VertexInputRateVertex
			if a.InstanceStep {
				rate = vk.VertexInputRateInstance
			}
			bindings = append(bindings, vk.VertexInputBindingDescription{
				Binding:   uint32(a.Binding),
				InputRate: rate,
				// Stride is filled in by the caller's pipeline cache key
				// in a fuller implementation; this backend requires
				// tightly-packed single-attribute bindings per binding
				// index, the common case for a simple vertex puller.
				Stride: formatSize(a.Format),
			})
		}
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(len(attrs)),
			Binding:  uint32(a.Binding),
			Format:   toVkFormat(a.Format),
			Offset:   uint32(a.Offset),
		})
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: toVkTopology(state.Topology),
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
	if state.RasterState != nil {
		raster.PolygonMode = toVkPolygonMode(state.RasterState.FillMode)
		raster.CullMode = vk.CullModeFlags(toVkCullMode(state.RasterState.CullMode))
		raster.FrontFace = toVkFrontFace(state.RasterState.FrontFace)
		raster.DepthClampEnable = vkBool(state.RasterState.DepthClamp)
		raster.DepthBiasEnable = vkBool(state.RasterState.DepthBias != 0)
		raster.DepthBiasConstantFactor = float32(state.RasterState.DepthBias)
		raster.DepthBiasSlopeFactor = state.RasterState.SlopeScaledDepthBias
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: toVkSampleCount(state.SampleCount),
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{SType: vk.StructureTypePipelineDepthStencilStateCreateInfo}
	if state.DepthState != nil {
		depthStencil.DepthTestEnable = vkBool(state.DepthState.DepthTest)
		depthStencil.DepthWriteEnable = vkBool(state.DepthState.DepthWrite)
		depthStencil.DepthCompareOp = toVkCompareOp(state.DepthState.DepthFunc)
		depthStencil.StencilTestEnable = vkBool(state.DepthState.StencilTest)
	}

	var colorBlendAttachments []vk.PipelineColorBlendAttachmentState
	for range state.ColorFormats {
		att := vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}
		if state.BlendState != nil {
			att.BlendEnable = vk.True
			att.SrcColorBlendFactor = toVkBlendFactor(state.BlendState.SrcColor)
			att.DstColorBlendFactor = toVkBlendFactor(state.BlendState.DstColor)
			att.SrcAlphaBlendFactor = toVkBlendFactor(state.BlendState.SrcAlpha)
			att.DstAlphaBlendFactor = toVkBlendFactor(state.BlendState.DstAlpha)
		}
		colorBlendAttachments = append(colorBlendAttachments, att)
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(colorBlendAttachments)),
		PAttachments:    colorBlendAttachments,
	}

	dynStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynStates)),
		PDynamicStates:    dynStates,
	}

	renderPass, err := d.getOrCreateRenderPass(state.ColorFormats, state.DepthFormat, state.SampleCount)
	if err != nil {
		return nil, err
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              rs.pipelineLayout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateGraphicsPipelines failed: %v", rhi.ErrResource, res)
	}

	alloc.For("vkb-pipeline").Alloc(0)
	return &pipeline{
		d: d, handle: pipelines[0], layout: rs.pipelineLayout,
		bindPoint: vk.PipelineBindPointGraphics, typ: rhi.PipelineGraphics, renderPass: renderPass,
	}, nil
}

func (p *pipeline) Type() rhi.PipelineType { return p.typ }

func (p *pipeline) Destroy() {
	vk.DestroyPipeline(p.d.handle, p.handle, nil)
	alloc.For("vkb-pipeline").Free(0)
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func toVkShaderStageFlagBits(s rhi.ShaderStage) vk.ShaderStageFlagBits {
	switch s {
	case rhi.StageVert:
		return vk.ShaderStageVertexBit
	case rhi.StageTesc:
		return vk.ShaderStageTessellationControlBit
	case rhi.StageTese:
		return vk.ShaderStageTessellationEvaluationBit
	case rhi.StageGeom:
		return vk.ShaderStageGeometryBit
	case rhi.StageFrag:
		return vk.ShaderStageFragmentBit
	case rhi.StageComp:
		return vk.ShaderStageComputeBit
	default:
		return vk.ShaderStageAll
	}
}

func toVkTopology(t rhi.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case rhi.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case rhi.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	case rhi.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case rhi.TopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func toVkPolygonMode(m rhi.FillMode) vk.PolygonMode {
	if m == rhi.FillWireframe {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

func toVkCullMode(m rhi.CullMode) vk.CullModeFlagBits {
	switch m {
	case rhi.CullFront:
		return vk.CullModeFrontBit
	case rhi.CullNone:
		return vk.CullModeNone
	default:
		return vk.CullModeBackBit
	}
}

func toVkFrontFace(f rhi.FrontFace) vk.FrontFace {
	if f == rhi.FrontCW {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func toVkBlendFactor(c rhi.BlendConstant) vk.BlendFactor {
	switch c {
	case rhi.BlendZero:
		return vk.BlendFactorZero
	case rhi.BlendSrcColor:
		return vk.BlendFactorSrcColor
	case rhi.BlendOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case rhi.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case rhi.BlendOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case rhi.BlendDstColor:
		return vk.BlendFactorDstColor
	case rhi.BlendOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case rhi.BlendDstAlpha:
		return vk.BlendFactorDstAlpha
	case rhi.BlendOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	default:
		return vk.BlendFactorOne
	}
}

// formatSize returns the byte size of a single-attribute tightly
// packed vertex binding. Covers the formats VertexAttribDesc
// realistically names; anything else falls back to 16 bytes (a
// float4-equivalent) rather than failing pipeline creation outright.
func formatSize(f rhi.PixelFormat) uint32 {
	switch f {
	case rhi.FormatR32Float:
		return 4
	case rhi.FormatR8Unorm, rhi.FormatR8Norm:
		return 1
	case rhi.FormatRG32Float:
		return 8
	case rhi.FormatRGBA32Float:
		return 16
	case rhi.FormatRG16Float:
		return 4
	case rhi.FormatRGBA16Float:
		return 8
	case rhi.FormatRGBA8Unorm, rhi.FormatRGBA8Norm, rhi.FormatRGBA8SRGB, rhi.FormatBGRA8Unorm, rhi.FormatBGRA8SRGB, rhi.FormatA2B10G10R10Unorm:
		return 4
	case rhi.FormatRG8Unorm, rhi.FormatRG8Norm:
		return 2
	default:
		return 16
	}
}
