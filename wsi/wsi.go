// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package wsi is the window-system boundary the RHI draws into. It
// names the interface a concrete windowing toolkit (glfw, a platform's
// native window, a headless surface for testing) must satisfy to back
// a Device.NewSwapChain call; it does not implement a toolkit itself.
//
// The original gviegas/scene wsi package did own full per-platform
// window creation (Xcb, Wayland, Win32). This package narrows that to
// the boundary spec.md §6 describes: the RHI only ever needs a window's
// current size and a native handle it can hand to the platform surface
// call (vkCreateXcbSurfaceKHR, vkCreateWin32SurfaceKHR, and so on via
// glfw's own surface helper). Everything else — input, title, show/hide
// — is the toolkit's job, not the RHI's.
package wsi

// Window is the interface a Device.NewSwapChain target must satisfy.
type Window interface {
	// Width and Height report the window's current drawable size in
	// pixels. The RHI never resizes the window itself; rhi/vkb sizes a
	// swapchain from SwapChainDesc and the surface's reported extent,
	// not from these.
	Width() int
	Height() int

	// NativeHandle returns the platform-specific handle a backend's
	// surface-creation call expects. Its concrete type is backend- and
	// platform-dependent (e.g. *glfw.Window for vkb, which derives the
	// Xcb/Wayland/Win32 handle itself via glfw's surface helper).
	NativeHandle() any
}
