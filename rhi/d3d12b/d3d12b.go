// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package d3d12b is a no-op placeholder for a Direct3D 12 rhi.Backend.
// spec.md leaves a second backend as an open question ("may omit it or
// keep it as a no-op placeholder"); this keeps the "vulkan"/"d3d12"
// backend-name registry symmetric without pulling in a Windows-only
// dependency for a path this module cannot exercise or test here.
package d3d12b

import (
	"fmt"

	"github.com/NoSW/Axe-sub000/rhi"
)

func init() {
	rhi.RegisterBackend("d3d12", newBackend)
}

func newBackend(desc rhi.BackendDesc) (rhi.Backend, error) {
	return nil, fmt.Errorf("rhi/d3d12b: %w: Direct3D 12 backend is not implemented", rhi.ErrConfig)
}
