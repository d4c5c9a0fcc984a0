// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vkb

import (
	"fmt"
	"sync"

	"github.com/NoSW/Axe-sub000/alloc"
	"github.com/NoSW/Axe-sub000/internal/bitm"
	"github.com/NoSW/Axe-sub000/internal/rlog"
	"github.com/NoSW/Axe-sub000/rhi"
	vk "github.com/vulkan-go/vulkan"
)

const vendorIDNVIDIA = 0x10de

func init() {
	rhi.RegisterBackend("vulkan", newBackend)
}

// backend implements rhi.Backend.
type backend struct {
	instance vk.Instance

	mu       sync.Mutex
	adapters []*adapter
	slots    bitm.Bitm[uint32] // tracks which adapters[i] slots are live
}

func newBackend(desc rhi.BackendDesc) (rhi.Backend, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vkb: %w: failed to load Vulkan loader: %v", rhi.ErrNotInstalled, err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		PApplicationName: cstr(desc.AppName),
		ApiVersion:    vk.MakeVersion(1, 1, 0),
	}

	wantedLayers, warnLayers := intersectLayers(desc.WantedInstanceLayers, desc.EnableDebugLayer)
	for _, l := range warnLayers {
		rlog.Warnf("vkb: instance layer %q requested but not available", l)
	}
	wantedExts, warnExts := intersectInstanceExtensions(desc.WantedInstanceExtensions)
	for _, e := range warnExts {
		rlog.Warnf("vkb: instance extension %q requested but not available", e)
	}

	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledLayerCount:       uint32(len(wantedLayers)),
		PpEnabledLayerNames:     wantedLayers,
		EnabledExtensionCount:   uint32(len(wantedExts)),
		PpEnabledExtensionNames: wantedExts,
	}

	var inst vk.Instance
	if res := vk.CreateInstance(&info, nil, &inst); res != vk.Success {
		return nil, fmt.Errorf("vkb: %w: vkCreateInstance failed: %v", rhi.ErrFatal, res)
	}
	vk.InitInstance(inst)

	b := &backend{instance: inst}
	if err := b.enumerateAdapters(); err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, err
	}
	alloc.For("vkb-backend").Alloc(0)
	return b, nil
}

func (b *backend) enumerateAdapters() error {
	var n uint32
	if res := vk.EnumeratePhysicalDevices(b.instance, &n, nil); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkEnumeratePhysicalDevices failed: %v", rhi.ErrNoDevice, res)
	}
	if n == 0 {
		return rhi.ErrNoDevice
	}
	devs := make([]vk.PhysicalDevice, n)
	if res := vk.EnumeratePhysicalDevices(b.instance, &n, devs); res != vk.Success {
		return fmt.Errorf("vkb: %w: vkEnumeratePhysicalDevices failed: %v", rhi.ErrNoDevice, res)
	}

	b.slots.Grow(len(devs))
	for i, pd := range devs {
		a := newAdapter(b, pd, i)
		b.adapters = append(b.adapters, a)
		b.slots.Set(i)
	}

	// Rank discrete > integrated > virtual > cpu > other, matching
	// spec.md §2's adapter-ranking requirement. A stable sort keeps
	// driver enumeration order within a tier.
	rankOf := func(t rhi.AdapterType) int {
		switch t {
		case rhi.AdapterDiscreteGPU:
			return 0
		case rhi.AdapterIntegratedGPU:
			return 1
		case rhi.AdapterVirtualGPU:
			return 2
		case rhi.AdapterCPU:
			return 3
		default:
			return 4
		}
	}
	for i := 1; i < len(b.adapters); i++ {
		for j := i; j > 0 && rankOf(b.adapters[j].Type()) < rankOf(b.adapters[j-1].Type()); j-- {
			b.adapters[j], b.adapters[j-1] = b.adapters[j-1], b.adapters[j]
		}
	}
	return nil
}

func (b *backend) Adapters() []rhi.Adapter {
	out := make([]rhi.Adapter, len(b.adapters))
	for i, a := range b.adapters {
		out[i] = a
	}
	return out
}

func (b *backend) RequestAdapter(desc rhi.AdapterDesc) (rhi.Adapter, error) {
	if len(b.adapters) == 0 {
		return nil, rhi.ErrNoDevice
	}
	if !desc.SelectBest {
		if desc.Index < 0 || desc.Index >= len(b.adapters) {
			return nil, fmt.Errorf("vkb: %w: adapter index %d out of range", rhi.ErrConfig, desc.Index)
		}
		return b.adapters[desc.Index], nil
	}
	return b.adapters[0], nil
}

func (b *backend) Destroy() {
	vk.DestroyInstance(b.instance, nil)
	alloc.For("vkb-backend").Free(0)
}

func cstr(s string) string {
	// vulkan-go's string fields are plain Go strings that the binding
	// null-terminates internally; no manual C string management needed.
	return s
}
