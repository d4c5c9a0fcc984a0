// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestLayout(t *testing.T) *RootLayout {
	t.Helper()
	refl := mustMerge(t, StageReflection{
		Stage: StageFrag,
		Resources: []ShaderResource{
			{Name: "Albedo", Type: DescriptorTexture, Set: 1, Binding: 0, Size: 1, Stage: StageFrag},
		},
	})
	layout, err := BuildRootLayout(RootSignatureDesc{Shaders: []Shader{&fakeShader{refl: refl}}})
	require.NoError(t, err)
	return layout
}

func TestBuildDescriptorSetLayoutRejectsEmptyFrequency(t *testing.T) {
	layout := buildTestLayout(t)
	_, err := BuildDescriptorSetLayout(layout, FreqPerDraw, 3)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuildDescriptorSetLayoutOK(t *testing.T) {
	layout := buildTestLayout(t)
	dsl, err := BuildDescriptorSetLayout(layout, FreqPerFrame, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, dsl.MaxSets)
	assert.Len(t, dsl.Descriptors, 1)
}

func TestValidateUpdateRejectsStaticSampler(t *testing.T) {
	info := &DescriptorInfo{Name: "Linear", IsStaticSampler: true, Freq: FreqNone, Size: 1}
	set := &DescriptorSetLayout{Freq: FreqNone}
	err := ValidateUpdate(set, info, DescriptorUpdate{Name: "Linear", Resources: []any{nil}})
	assert.ErrorIs(t, err, ErrState)
}

func TestValidateUpdateRejectsOverflow(t *testing.T) {
	info := &DescriptorInfo{Name: "Albedo", Freq: FreqPerFrame, Size: 2}
	set := &DescriptorSetLayout{Freq: FreqPerFrame}
	err := ValidateUpdate(set, info, DescriptorUpdate{Name: "Albedo", ArrayOffset: 1, Resources: []any{nil, nil}})
	assert.ErrorIs(t, err, ErrState)
}

func TestNeedsNullDefault(t *testing.T) {
	assert.True(t, NeedsNullDefault(DescriptorTexture))
	assert.False(t, NeedsNullDefault(DescriptorRootConstant))
}
