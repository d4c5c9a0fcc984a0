// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import "errors"

// Error taxonomy. Every failure the RHI reports maps to exactly one of
// these sentinels; call sites wrap them with fmt.Errorf("...: %w", ErrX)
// to add detail. Callers should use errors.Is against these values rather
// than string-matching.
var (
	// ErrConfig means the requested configuration cannot be satisfied by
	// the available backend/adapter/device (e.g. requested shader model
	// exceeds device support, no graphics-capable adapter, no
	// present-capable queue family, no supported present mode).
	ErrConfig = errors.New("rhi: unsupported configuration")

	// ErrResource means a backend allocation or view creation failed.
	ErrResource = errors.New("rhi: resource creation failed")

	// ErrReflect means shader reflection produced an inconsistent or
	// invalid result (duplicate stage, conflicting resource binding,
	// stage-bit/execution-model mismatch).
	ErrReflect = errors.New("rhi: shader reflection error")

	// ErrState means an object was used in a way its current state
	// forbids (mapping a GPU-only buffer, double-mapping, an
	// out-of-range descriptor update, a frequency mismatch, updating a
	// static sampler).
	ErrState = errors.New("rhi: invalid object state")

	// ErrCannotPresent means the device/surface combination does not
	// support presentation.
	ErrCannotPresent = errors.New("rhi: presentation not supported")

	// ErrNoDevice means no suitable physical device was found.
	ErrNoDevice = errors.New("rhi: no suitable device found")

	// ErrNotInstalled means a platform-specific library the backend
	// requires (the Vulkan loader, a DXGI/D3D12 DLL) is not present.
	ErrNotInstalled = errors.New("rhi: missing required library")

	// ErrFatal means the device is in an unrecoverable state; the
	// caller must destroy every object it created on this device and
	// close the owning Backend.
	ErrFatal = errors.New("rhi: unrecoverable device error")
)

// SwapchainWarning reports a non-fatal swapchain condition (suboptimal or
// out-of-date) surfaced by Queue.Present or SwapChain.AcquireNextImage.
// Both return it as their error value; callers tell it apart from a
// fatal error with errors.As and read Suboptimal/OutOfDate. It is not
// logged.
type SwapchainWarning struct {
	Suboptimal bool
	OutOfDate  bool
}

func (w SwapchainWarning) Error() string {
	switch {
	case w.OutOfDate:
		return "rhi: swapchain out of date"
	case w.Suboptimal:
		return "rhi: swapchain suboptimal"
	default:
		return "rhi: swapchain warning"
	}
}
