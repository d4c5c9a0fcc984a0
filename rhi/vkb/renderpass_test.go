// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"testing"

	"github.com/NoSW/Axe-sub000/rhi"
)

func TestRenderPassKeyDistinguishesFormats(t *testing.T) {
	a := renderPassKey([]rhi.PixelFormat{rhi.FormatRGBA8Unorm}, rhi.FormatD32Float, rhi.Sample1)
	b := renderPassKey([]rhi.PixelFormat{rhi.FormatBGRA8Unorm}, rhi.FormatD32Float, rhi.Sample1)
	if a == b {
		t.Fatalf("renderPassKey should differ when color formats differ: both = %q", a)
	}
}

func TestRenderPassKeyDistinguishesSampleCount(t *testing.T) {
	colors := []rhi.PixelFormat{rhi.FormatRGBA8Unorm}
	a := renderPassKey(colors, rhi.FormatUndefined, rhi.Sample1)
	b := renderPassKey(colors, rhi.FormatUndefined, rhi.Sample4)
	if a == b {
		t.Fatalf("renderPassKey should differ when sample count differs: both = %q", a)
	}
}

func TestRenderPassKeyStableForIdenticalInput(t *testing.T) {
	colors := []rhi.PixelFormat{rhi.FormatRGBA8Unorm, rhi.FormatRGBA16Float}
	a := renderPassKey(colors, rhi.FormatD24UnormS8Uint, rhi.Sample8)
	b := renderPassKey(colors, rhi.FormatD24UnormS8Uint, rhi.Sample8)
	if a != b {
		t.Fatalf("renderPassKey not deterministic: %q != %q", a, b)
	}
}

func TestRenderPassKeyOrderSensitive(t *testing.T) {
	a := renderPassKey([]rhi.PixelFormat{rhi.FormatRGBA8Unorm, rhi.FormatRG16Float}, rhi.FormatUndefined, rhi.Sample1)
	b := renderPassKey([]rhi.PixelFormat{rhi.FormatRG16Float, rhi.FormatRGBA8Unorm}, rhi.FormatUndefined, rhi.Sample1)
	if a == b {
		t.Fatalf("renderPassKey should be sensitive to color-attachment order (attachment index matters to a framebuffer): both = %q", a)
	}
}
