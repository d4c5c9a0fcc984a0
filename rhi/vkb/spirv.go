// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"encoding/binary"
	"fmt"

	"github.com/NoSW/Axe-sub000/rhi"
)

// SPIR-V reflection. No corpus module ships a SPIR-V reflection
// library (spirv-reflect-go and friends are not part of the pack), so
// this hand-parses the handful of opcodes a resource-binding/vertex-
// input/local-size pass needs: OpName, OpEntryPoint, OpExecutionMode,
// OpDecorate/OpMemberDecorate, OpTypePointer/Image/Sampler/
// SampledImage/Struct/Array/RuntimeArray, and OpVariable. This is a
// narrow reflector, not a general SPIR-V disassembler: instructions
// outside that set are skipped by their declared word count.
const (
	spirvMagic = 0x07230203

	opName             = 5
	opExecutionMode    = 16
	opTypeStruct       = 30
	opTypePointer      = 32
	opTypeImage        = 25
	opTypeSampler      = 26
	opTypeSampledImage = 27
	opTypeArray        = 28
	opTypeRuntimeArray = 29
	opVariable         = 59
	opDecorate         = 71
	opMemberDecorate   = 72
	opEntryPoint       = 15
)

const (
	decorationBlock         = 2
	decorationBufferBlock   = 3
	decorationOffset        = 35
	decorationBinding       = 33
	decorationDescriptorSet = 34
	decorationLocation      = 30
)

const (
	storageClassUniformConstant = 0
	storageClassInput           = 1
	storageClassUniform         = 2
	storageClassOutput          = 3
	storageClassPushConstant    = 9
	storageClassStorageBuffer   = 12
)

const (
	executionModelVertex       = 0
	executionModelFragment     = 4
	executionModelGLCompute    = 5
	executionModelTessControl  = 1
	executionModelTessEval     = 2
	executionModelGeometry     = 3
	executionModeLocalSize     = 17
)

// spirvModule holds the decoded facts this reflector extracted from
// one SPIR-V binary.
type spirvModule struct {
	names        map[uint32]string
	memberNames  map[uint32]map[uint32]string
	decorations  map[uint32]map[uint32]uint32 // id -> decoration -> literal operand
	blockIDs     map[uint32]bool              // types decorated Block or BufferBlock
	pointerElem  map[uint32]uint32            // pointer type id -> pointee type id
	pointerClass map[uint32]uint32            // pointer type id -> storage class
	imageDim     map[uint32]rhi.TextureDimension
	imageSampled map[uint32]uint32 // 1=sampled, 2=storage
	sampledImage map[uint32]uint32 // combined-image-sampler type -> underlying image type
	isSampler    map[uint32]bool
	arrayLen     map[uint32]uint32 // array type id -> element count (0 for runtime array)
	arrayElem    map[uint32]uint32
	entryStage   rhi.ShaderStage
	entryName    string
	localSize    [3]uint32

	vertexInputs []rhi.VertexInput
	resources    []rhi.ShaderResource
}

func parseSPIRV(code []byte, stage rhi.ShaderStage) (*rhi.StageReflection, error) {
	if len(code) < 20 || len(code)%4 != 0 {
		return nil, fmt.Errorf("vkb: %w: shader byte-code is not a valid SPIR-V module", rhi.ErrReflect)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("vkb: %w: bad SPIR-V magic number", rhi.ErrReflect)
	}

	m := &spirvModule{
		names: map[uint32]string{}, memberNames: map[uint32]map[uint32]string{},
		decorations: map[uint32]map[uint32]uint32{}, blockIDs: map[uint32]bool{},
		pointerElem: map[uint32]uint32{}, pointerClass: map[uint32]uint32{},
		imageDim: map[uint32]rhi.TextureDimension{}, imageSampled: map[uint32]uint32{},
		sampledImage: map[uint32]uint32{}, isSampler: map[uint32]bool{},
		arrayLen: map[uint32]uint32{}, arrayElem: map[uint32]uint32{},
	}

	i := 5 // skip header (magic, version, generator, bound, schema)
	for i < len(words) {
		inst := words[i]
		wordCount := int(inst >> 16)
		op := inst & 0xffff
		if wordCount == 0 || i+wordCount > len(words) {
			break
		}
		ops := words[i+1 : i+wordCount]
		switch op {
		case opName:
			m.names[ops[0]] = decodeString(ops[1:])
		case opEntryPoint:
			m.entryStage = executionModelToStage(ops[0])
			m.entryName = decodeString(ops[2:])
		case opExecutionMode:
			if len(ops) >= 2 && ops[1] == executionModeLocalSize && len(ops) >= 5 {
				m.localSize = [3]uint32{ops[2], ops[3], ops[4]}
			}
		case opDecorate:
			id, dec := ops[0], ops[1]
			if m.decorations[id] == nil {
				m.decorations[id] = map[uint32]uint32{}
			}
			if len(ops) > 2 {
				m.decorations[id][dec] = ops[2]
			} else {
				m.decorations[id][dec] = 0
			}
			if dec == decorationBlock || dec == decorationBufferBlock {
				m.blockIDs[id] = true
			}
		case opMemberDecorate:
			// Only Offset is consulted (struct-size estimation for push
			// constants); member names/other decorations are not needed
			// by this reflector.
			if ops[2] == decorationOffset && len(ops) > 3 {
				typeID := ops[0]
				if m.decorations[typeID] == nil {
					m.decorations[typeID] = map[uint32]uint32{}
				}
				if ops[3] > m.decorations[typeID][decorationOffset] {
					m.decorations[typeID][decorationOffset] = ops[3]
				}
			}
		case opTypePointer:
			m.pointerClass[ops[0]] = ops[1]
			m.pointerElem[ops[0]] = ops[2]
		case opTypeImage:
			m.imageDim[ops[0]] = spirvDimToRHI(ops[2])
			if len(ops) >= 7 {
				m.imageSampled[ops[0]] = ops[6]
			}
		case opTypeSampler:
			m.isSampler[ops[0]] = true
		case opTypeSampledImage:
			m.sampledImage[ops[0]] = ops[1]
		case opTypeStruct:
			// Membership recorded implicitly via decorations on this id.
		case opTypeArray:
			m.arrayElem[ops[0]] = ops[1]
			m.arrayLen[ops[0]] = 1 // constant-id resolution is out of scope; treat as size 1
		case opTypeRuntimeArray:
			m.arrayElem[ops[0]] = ops[1]
			m.arrayLen[ops[0]] = 0
		case opVariable:
			m.handleVariable(ops)
		}
		i += wordCount
	}

	refl := &rhi.StageReflection{
		EntryPoint: m.entryName,
		Stage:      stage,
	}
	if stage == rhi.StageComp {
		refl.NumThreadsPerGroup = m.localSize
	}
	refl.VertexInputs = m.vertexInputs
	refl.Resources = m.resources
	return refl, nil
}

// handleVariable records one OpVariable (a located input, an opaque
// resource, a uniform/storage block or a push-constant block);
// resources/vertexInputs accumulate directly on spirvModule.
func (m *spirvModule) handleVariable(ops []uint32) {
	resultType, resultID, storageClass := ops[0], ops[1], ops[2]
	elemType, ok := m.pointerElem[resultType]
	if !ok {
		return
	}
	name := m.names[resultID]

	switch storageClass {
	case storageClassInput:
		if _, hasLoc := m.decorations[resultID][decorationLocation]; !hasLoc {
			return
		}
		m.vertexInputs = append(m.vertexInputs, rhi.VertexInput{Name: name, Size: 1})
	case storageClassUniformConstant:
		m.addOpaqueResource(name, resultID, elemType)
	case storageClassUniform, storageClassStorageBuffer:
		set := m.decorations[resultID][decorationDescriptorSet]
		binding := m.decorations[resultID][decorationBinding]
		typ := rhi.DescriptorUniformBuffer
		if storageClass == storageClassStorageBuffer || m.decorations[elemType][decorationBufferBlock] != 0 {
			typ = rhi.DescriptorBuffer | rhi.DescriptorRWBuffer
		}
		m.resources = append(m.resources, rhi.ShaderResource{
			Name: name, Stage: stageFromModule(m), Type: typ, Set: set, Binding: binding, Size: 1,
		})
	case storageClassPushConstant:
		size := m.decorations[elemType][decorationOffset] + 16 // approximate trailing member width
		m.resources = append(m.resources, rhi.ShaderResource{
			Name: name, Stage: stageFromModule(m), Type: rhi.DescriptorRootConstant, Size: size,
		})
	}
}

func (m *spirvModule) addOpaqueResource(name string, id, elemType uint32) {
	set := m.decorations[id][decorationDescriptorSet]
	binding := m.decorations[id][decorationBinding]
	arrSize := uint32(1)
	t := elemType
	if n, isArr := m.arrayLen[elemType]; isArr {
		arrSize = n
		if arrSize == 0 {
			arrSize = 1 // unbounded/bindless array: reported as size 1
		}
		t = m.arrayElem[elemType]
	}

	switch {
	case m.isSampler[t]:
		m.resources = append(m.resources, rhi.ShaderResource{Name: name, Stage: stageFromModule(m), Type: rhi.DescriptorSampler, Set: set, Binding: binding, Size: arrSize})
	case m.sampledImage[t] != 0:
		img := m.sampledImage[t]
		m.resources = append(m.resources, rhi.ShaderResource{
			Name: name, Stage: stageFromModule(m), Type: rhi.DescriptorCombinedImageSampler,
			Dim: m.imageDim[img], Set: set, Binding: binding, Size: arrSize,
		})
	case func() bool { _, ok := m.imageDim[t]; return ok }():
		typ := rhi.DescriptorTexture
		if m.imageSampled[t] == 2 {
			typ = rhi.DescriptorRWTexture
		}
		m.resources = append(m.resources, rhi.ShaderResource{
			Name: name, Stage: stageFromModule(m), Type: typ, Dim: m.imageDim[t], Set: set, Binding: binding, Size: arrSize,
		})
	}
}

// stageFromModule resolves the current stage from the module's single
// OpEntryPoint; each compiled SPIR-V module this backend loads has
// exactly one entry point, matching glslang/dxc's per-stage output.
func stageFromModule(m *spirvModule) rhi.ShaderStage { return m.entryStage }

func executionModelToStage(model uint32) rhi.ShaderStage {
	switch model {
	case executionModelVertex:
		return rhi.StageVert
	case executionModelTessControl:
		return rhi.StageTesc
	case executionModelTessEval:
		return rhi.StageTese
	case executionModelGeometry:
		return rhi.StageGeom
	case executionModelFragment:
		return rhi.StageFrag
	case executionModelGLCompute:
		return rhi.StageComp
	default:
		return rhi.StageNone
	}
}

func spirvDimToRHI(dim uint32) rhi.TextureDimension {
	switch dim {
	case 0: // Dim1D
		return rhi.Dim1D
	case 1: // Dim2D
		return rhi.Dim2D
	case 2: // Dim3D
		return rhi.Dim3D
	case 3: // Cube
		return rhi.DimCube
	default:
		return rhi.Dim2D
	}
}

func decodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf)
			}
			buf = append(buf, b)
		}
	}
	return string(buf)
}
