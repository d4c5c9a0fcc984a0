// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"encoding/binary"
	"testing"

	"github.com/NoSW/Axe-sub000/rhi"
	"github.com/stretchr/testify/assert"
)

// spirvBuilder assembles a tiny, syntactically-valid SPIR-V module word
// stream for exercising parseSPIRV without a real compiler in the loop.
type spirvBuilder struct {
	words []uint32
}

func (b *spirvBuilder) inst(op uint16, operands ...uint32) {
	wordCount := uint32(len(operands) + 1)
	b.words = append(b.words, wordCount<<16|uint32(op))
	b.words = append(b.words, operands...)
}

// str encodes s as the null-padded little-endian word sequence SPIR-V
// literal strings use.
func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}

func (b *spirvBuilder) bytes() []byte {
	out := make([]byte, len(b.words)*4)
	for i, w := range b.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func newSPIRVHeader() *spirvBuilder {
	b := &spirvBuilder{}
	b.words = append(b.words, spirvMagic, 0x00010300, 0, 100, 0) // magic, version, generator, bound, schema
	return b
}

func TestParseSPIRVRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 24)
	_, err := parseSPIRV(buf, rhi.StageFrag)
	assert.ErrorIs(t, err, rhi.ErrReflect)
}

func TestParseSPIRVRejectsTruncated(t *testing.T) {
	_, err := parseSPIRV([]byte{1, 2, 3}, rhi.StageVert)
	assert.ErrorIs(t, err, rhi.ErrReflect)
}

func TestParseSPIRVEntryPoint(t *testing.T) {
	b := newSPIRVHeader()
	const mainID = 4
	nameWords := str("main")
	b.inst(opEntryPoint, append([]uint32{executionModelFragment, mainID}, nameWords...)...)

	refl, err := parseSPIRV(b.bytes(), rhi.StageFrag)
	assert.NoError(t, err)
	assert.Equal(t, "main", refl.EntryPoint)
}

func TestParseSPIRVComputeLocalSize(t *testing.T) {
	b := newSPIRVHeader()
	const mainID = 4
	b.inst(opEntryPoint, append([]uint32{executionModelGLCompute, mainID}, str("main")...)...)
	b.inst(opExecutionMode, mainID, executionModeLocalSize, 8, 8, 1)

	refl, err := parseSPIRV(b.bytes(), rhi.StageComp)
	assert.NoError(t, err)
	assert.Equal(t, [3]uint32{8, 8, 1}, refl.NumThreadsPerGroup)
}

func TestParseSPIRVUniformBufferResource(t *testing.T) {
	b := newSPIRVHeader()
	const (
		structID  = 10
		ptrID     = 11
		varID     = 12
	)
	b.inst(opName, append([]uint32{varID}, str("ubo")...)...)
	b.inst(opDecorate, structID, decorationBlock)
	b.inst(opDecorate, varID, decorationDescriptorSet, 0)
	b.inst(opDecorate, varID, decorationBinding, 3)
	b.inst(opTypeStruct, structID)
	b.inst(opTypePointer, ptrID, storageClassUniform, structID)
	b.inst(opVariable, ptrID, varID, storageClassUniform)

	refl, err := parseSPIRV(b.bytes(), rhi.StageVert)
	assert.NoError(t, err)
	if assert.Len(t, refl.Resources, 1) {
		r := refl.Resources[0]
		assert.Equal(t, "ubo", r.Name)
		assert.Equal(t, rhi.DescriptorUniformBuffer, r.Type)
		assert.EqualValues(t, 0, r.Set)
		assert.EqualValues(t, 3, r.Binding)
	}
}

func TestParseSPIRVVertexInputRequiresLocation(t *testing.T) {
	b := newSPIRVHeader()
	const (
		floatID = 20
		ptrID   = 21
		varID   = 22
	)
	b.inst(opName, append([]uint32{varID}, str("inPos")...)...)
	b.inst(opTypePointer, ptrID, storageClassInput, floatID)
	b.inst(opVariable, ptrID, varID, storageClassInput)

	refl, err := parseSPIRV(b.bytes(), rhi.StageVert)
	assert.NoError(t, err)
	assert.Empty(t, refl.VertexInputs, "an Input variable with no Location decoration must not be reported as a vertex input")
}

func TestParseSPIRVVertexInputWithLocation(t *testing.T) {
	b := newSPIRVHeader()
	const (
		floatID = 20
		ptrID   = 21
		varID   = 22
	)
	b.inst(opName, append([]uint32{varID}, str("inPos")...)...)
	b.inst(opDecorate, varID, decorationLocation, 0)
	b.inst(opTypePointer, ptrID, storageClassInput, floatID)
	b.inst(opVariable, ptrID, varID, storageClassInput)

	refl, err := parseSPIRV(b.bytes(), rhi.StageVert)
	assert.NoError(t, err)
	if assert.Len(t, refl.VertexInputs, 1) {
		assert.Equal(t, "inPos", refl.VertexInputs[0].Name)
	}
}

func TestDecodeStringStopsAtNull(t *testing.T) {
	assert.Equal(t, "hi", decodeString(str("hi")))
}
