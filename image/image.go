// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package image is the decoder boundary ResourceLoader reads texture
// data through. It names the contract spec.md §6 gives the image
// collaborator; it decodes nothing itself — a concrete DDS/KTX reader
// lives outside this module and is plugged in by whatever constructs a
// loader.Request.
package image

import "github.com/NoSW/Axe-sub000/rhi"

// Image exposes the data ResourceLoader needs to stage a texture
// upload: its dimensions, its format, whether it is a cubemap, and
// borrowed access to each mip level's raw bytes and their size. Nothing
// else — no decoding API, no file path, no color management — is part
// of this boundary.
type Image interface {
	Width() int
	Height() int
	Depth() int
	ArraySize() int
	MipLevels() int
	Format() rhi.PixelFormat
	IsCubemap() bool

	// MipRawData returns a borrowed view over mip level i's raw texel
	// data, ordered array-slice-major then depth-slice-major, the
	// layout loader's texture upload copies from. The caller must not
	// retain the slice past the enclosing upload.
	MipRawData(i int) []byte

	// MipSize reports len(MipRawData(i)) without requiring the caller
	// to decode the level first, so ResourceLoader can size a staging
	// buffer before touching image data.
	MipSize(i int) int
}
