// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import vk "github.com/vulkan-go/vulkan"

// availableInstanceLayers and availableInstanceExtensions enumerate what
// the loader actually advertises, mirroring the teacher's instanceExts
// query in driver/vk/ext.go (there done over cgo; here through the
// vulkan-go binding's generated wrappers).
func availableInstanceLayers() []string {
	var n uint32
	vk.EnumerateInstanceLayerProperties(&n, nil)
	if n == 0 {
		return nil
	}
	props := make([]vk.LayerProperties, n)
	vk.EnumerateInstanceLayerProperties(&n, props)
	out := make([]string, 0, n)
	for _, p := range props {
		p.Deref()
		out = append(out, vk.ToString(p.LayerName[:]))
	}
	return out
}

func availableInstanceExtensions() []string {
	var n uint32
	vk.EnumerateInstanceExtensionProperties("", &n, nil)
	if n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateInstanceExtensionProperties("", &n, props)
	out := make([]string, 0, n)
	for _, p := range props {
		p.Deref()
		out = append(out, vk.ToString(p.ExtensionName[:]))
	}
	return out
}

// intersectLayers keeps only the wanted layers the loader actually has,
// adding the standard validation layer when debug is requested. Layers
// it could not find are returned separately so the caller can warn
// rather than fail outright, matching the teacher's tolerant instance
// setup (driver/vk/driver.go logs and continues on a missing optional
// extension rather than aborting New).
func intersectLayers(wanted []string, enableDebug bool) (enabled []string, warned []string) {
	have := map[string]bool{}
	for _, l := range availableInstanceLayers() {
		have[l] = true
	}
	want := append([]string{}, wanted...)
	if enableDebug {
		want = append(want, "VK_LAYER_KHRONOS_validation")
	}
	seen := map[string]bool{}
	for _, l := range want {
		if seen[l] {
			continue
		}
		seen[l] = true
		if have[l] {
			enabled = append(enabled, l)
		} else {
			warned = append(warned, l)
		}
	}
	return
}

// intersectInstanceExtensions keeps only the wanted instance extensions
// the loader actually has. It adds none itself: VK_KHR_surface and the
// platform surface extension are enabled only if
// desc.WantedInstanceExtensions names them.
func intersectInstanceExtensions(wanted []string) (enabled []string, warned []string) {
	have := map[string]bool{}
	for _, e := range availableInstanceExtensions() {
		have[e] = true
	}
	seen := map[string]bool{}
	for _, e := range wanted {
		if seen[e] {
			continue
		}
		seen[e] = true
		if have[e] {
			enabled = append(enabled, e)
		} else {
			warned = append(warned, e)
		}
	}
	return
}
