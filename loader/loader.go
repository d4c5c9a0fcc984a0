// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package loader streams CPU-side data into GPU resources off the
// render thread. It is grounded on the original ResourceLoader: a
// small ring of staging CopyResourceSets, each with its own fence,
// semaphore, command pool/buffer and staging buffer, cycled through by
// a single consumer goroutine that drains a request queue.
//
// The teacher's mutex-guarded std::queue becomes a buffered Go channel
// here — spec.md §9 itself describes the request path as "a single
// producer-multi-consumer channel of Request messages", so the channel
// is the direct language-neutral formulation, not an invented
// substitute.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/NoSW/Axe-sub000/image"
	"github.com/NoSW/Axe-sub000/internal/rlog"
	"github.com/NoSW/Axe-sub000/rhi"
)

// Desc configures a new Loader.
type Desc struct {
	Device          rhi.Device
	Queue           rhi.Queue
	StageSetCount   int   // number of CopyResourceSets cycled through concurrently
	StageBufferSize int64 // bytes per staging buffer
}

// UpdateBufferRequest copies Data into Buffer starting at Offset.
type UpdateBufferRequest struct {
	Buffer rhi.Buffer
	Offset int64
	Data   []byte
	Done   chan<- error // optional: signaled once the copy has been submitted
}

// UpdateTextureRequest copies every mip level of Image into Texture.
type UpdateTextureRequest struct {
	Texture rhi.Texture
	Image   image.Image
	Done    chan<- error
}

type request struct {
	buf *UpdateBufferRequest
	tex *UpdateTextureRequest
}

// copyResourceSet is one staging lane: a fence-guarded command buffer
// and a CPU-visible staging buffer, matching the teacher's
// CopyResourceSet. temps mirrors the original's TempBuffers: one-shot
// CPU-only buffers allocated inside the set when a request (or a
// single mip of one) overruns stage, freed the next time this lane is
// acquired (by then its fence has signaled, so the GPU is done reading
// them). A slice rather than a single buffer because one texture
// upload can overrun stage on more than one mip within the same
// recording, and every temp it allocated must outlive that one Submit.
type copyResourceSet struct {
	fence     *rhi.Fence
	semaphore *rhi.Semaphore
	pool      rhi.CmdPool
	cmd       rhi.Cmd
	stage     rhi.Buffer
	temps     []rhi.Buffer
	used      int64
}

// Loader is a background resource streamer: callers push requests,
// a single goroutine records them into a ring of copyResourceSets and
// submits them to Queue.
type Loader struct {
	device rhi.Device
	queue  rhi.Queue

	sets []*copyResourceSet
	next int
	mu   sync.Mutex // guards sets/next; the consumer goroutine and Close both touch them

	requests chan request
	done     chan struct{}
	wg       sync.WaitGroup
}

// New allocates desc.StageSetCount copy lanes and starts the consumer
// goroutine.
func New(desc Desc) (*Loader, error) {
	if desc.StageSetCount <= 0 {
		desc.StageSetCount = 2
	}
	if desc.StageBufferSize <= 0 {
		desc.StageBufferSize = 16 << 20
	}

	l := &Loader{
		device:   desc.Device,
		queue:    desc.Queue,
		requests: make(chan request, 64),
		done:     make(chan struct{}),
	}

	for i := 0; i < desc.StageSetCount; i++ {
		set, err := newCopyResourceSet(desc.Device, desc.Queue, desc.StageBufferSize)
		if err != nil {
			l.closeSets()
			return nil, err
		}
		l.sets = append(l.sets, set)
	}

	l.wg.Add(1)
	go l.loop()
	return l, nil
}

func newCopyResourceSet(d rhi.Device, q rhi.Queue, size int64) (*copyResourceSet, error) {
	fence, err := d.NewFence(rhi.FenceDesc{Signaled: true})
	if err != nil {
		return nil, err
	}
	sem, err := d.NewSemaphore(rhi.SemaphoreDesc{})
	if err != nil {
		fence.Destroy()
		return nil, err
	}
	pool, err := d.NewCmdPool(rhi.CmdPoolDesc{Queue: q, AllowIndividualReset: true})
	if err != nil {
		sem.Destroy()
		fence.Destroy()
		return nil, err
	}
	cmd, err := pool.NewCmd(rhi.CmdDesc{Pool: pool})
	if err != nil {
		pool.Destroy()
		sem.Destroy()
		fence.Destroy()
		return nil, err
	}
	stage, err := d.NewBuffer(rhi.BufferDesc{
		Name: "loader-stage", Size: size,
		MemoryUsage: rhi.MemoryUsageCPUToGPU, StartState: rhi.ResourceStateCommon,
	})
	if err != nil {
		pool.Destroy()
		sem.Destroy()
		fence.Destroy()
		return nil, err
	}
	return &copyResourceSet{fence: fence, semaphore: sem, pool: pool, cmd: cmd, stage: stage}, nil
}

// PushUpdateBuffer enqueues a buffer upload. It never blocks on the
// GPU; it only blocks if the internal request channel is full.
func (l *Loader) PushUpdateBuffer(r UpdateBufferRequest) {
	l.requests <- request{buf: &r}
}

// PushUpdateTexture enqueues a texture upload.
func (l *Loader) PushUpdateTexture(r UpdateTextureRequest) {
	l.requests <- request{tex: &r}
}

// WaitIdle blocks until each lane's fence is signaled, so work already
// submitted has completed. Requests still queued in the channel are not
// waited for. It does not stop the consumer goroutine; callers may keep
// pushing after it returns.
func (l *Loader) WaitIdle() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sets {
		if s.fence.Wait == nil {
			continue
		}
		if err := s.fence.Wait(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the consumer goroutine, waits for in-flight work, and
// destroys every staging lane. Callers must not Push after Close.
func (l *Loader) Close() {
	close(l.requests)
	l.wg.Wait()
	l.closeSets()
}

func (l *Loader) closeSets() {
	for _, s := range l.sets {
		if s.fence != nil && s.fence.Wait != nil {
			s.fence.Wait(context.Background())
		}
		for _, t := range s.temps {
			t.Destroy()
		}
		if s.cmd != nil {
			s.cmd.Destroy()
		}
		if s.pool != nil {
			s.pool.Destroy()
		}
		if s.stage != nil {
			s.stage.Destroy()
		}
		if s.semaphore != nil && s.semaphore.Destroy != nil {
			s.semaphore.Destroy()
		}
		if s.fence != nil && s.fence.Destroy != nil {
			s.fence.Destroy()
		}
	}
}

func (l *Loader) loop() {
	defer l.wg.Done()
	for req := range l.requests {
		var err error
		switch {
		case req.buf != nil:
			err = l.updateBuffer(req.buf)
			if req.buf.Done != nil {
				req.buf.Done <- err
			}
		case req.tex != nil:
			err = l.updateTexture(req.tex)
			if req.tex.Done != nil {
				req.tex.Done <- err
			}
		}
		if err != nil {
			rlog.Warnf("loader: request failed: %v", err)
		}
	}
}

// acquireSet blocks until the next lane in the ring is free (its fence
// signaled), mirroring the teacher's _mNextAvailableSet round-robin.
func (l *Loader) acquireSet() (*copyResourceSet, error) {
	l.mu.Lock()
	set := l.sets[l.next]
	l.next = (l.next + 1) % len(l.sets)
	l.mu.Unlock()

	if set.fence.Wait != nil {
		if err := set.fence.Wait(context.Background()); err != nil {
			return nil, err
		}
	}
	for _, t := range set.temps {
		t.Destroy()
	}
	set.temps = nil
	if err := set.pool.Reset(); err != nil {
		return nil, err
	}
	set.used = 0
	return set, nil
}

// stageBuffer returns a buffer sized at least n bytes to stage into:
// set's own lane if it fits, else a temp CPU-only buffer allocated
// inside set per spec.md §8 "Oversize upload", freed the next time
// acquireSet reclaims this lane.
func (l *Loader) stageBuffer(set *copyResourceSet, n int64) (rhi.Buffer, error) {
	if n <= set.stage.Size() {
		return set.stage, nil
	}
	temp, err := l.device.NewBuffer(rhi.BufferDesc{
		Name: "loader-stage-temp", Size: n,
		MemoryUsage: rhi.MemoryUsageCPUToGPU, StartState: rhi.ResourceStateCommon,
	})
	if err != nil {
		return nil, fmt.Errorf("loader: %w: failed to allocate oversize staging buffer of %d bytes: %v", rhi.ErrResource, n, err)
	}
	set.temps = append(set.temps, temp)
	return temp, nil
}

func (l *Loader) updateBuffer(r *UpdateBufferRequest) error {
	set, err := l.acquireSet()
	if err != nil {
		return err
	}

	src, err := l.stageBuffer(set, int64(len(r.Data)))
	if err != nil {
		return err
	}
	mapped, err := src.Map()
	if err != nil {
		return err
	}
	copy(mapped, r.Data)
	src.Unmap()

	if err := set.cmd.Begin(); err != nil {
		return err
	}
	set.cmd.CopyBuffer(r.Buffer, r.Offset, src, 0, int64(len(r.Data)))
	if err := set.cmd.End(); err != nil {
		return err
	}
	return l.queue.Submit(rhi.QueueSubmitDesc{Cmds: []rhi.Cmd{set.cmd}, SignalFence: set.fence})
}

// roundUp rounds n up to the nearest multiple of align (align <= 1 is
// a no-op), mirroring spec.md §4.7's round_up(row_bytes, row_alignment).
func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// mipExtent halves n by mip levels, floored at 1.
func mipExtent(n, mip int) int {
	e := n >> uint(mip)
	if e < 1 {
		e = 1
	}
	return e
}

func (l *Loader) updateTexture(r *UpdateTextureRequest) error {
	set, err := l.acquireSet()
	if err != nil {
		return err
	}

	settings := l.device.Adapter().Settings()
	rowAlign := int64(settings.UploadBufferTextureRowAlignment)
	offsetAlign := int64(settings.UploadBufferTextureAlignment)
	bpp := int64(r.Image.Format().BytesPerPixel())
	arraySize := r.Image.ArraySize()

	if err := set.cmd.Begin(); err != nil {
		return err
	}
	set.cmd.ResourceBarrier([]rhi.TextureBarrier{{
		Texture: r.Texture,
		Barrier: rhi.Barrier{CurrentState: rhi.ResourceStateUndefined, NewState: rhi.ResourceStateCopyDest},
	}}, nil, nil)

	for mip := 0; mip < r.Image.MipLevels(); mip++ {
		data := r.Image.MipRawData(mip)
		if arraySize <= 0 {
			continue
		}
		layerSize := int64(len(data)) / int64(arraySize)

		rowBytes := int64(mipExtent(r.Image.Width(), mip)) * bpp
		pitch := roundUp(rowBytes, rowAlign)
		numRows := mipExtent(r.Image.Height(), mip)
		sliceSize := roundUp(pitch*int64(numRows), offsetAlign)
		staged := sliceSize * int64(arraySize)

		src, err := l.stageBuffer(set, staged)
		if err != nil {
			return err
		}
		mapped, err := src.Map()
		if err != nil {
			return err
		}
		for layer := 0; layer < arraySize; layer++ {
			srcBase := int64(layer) * layerSize
			dstBase := int64(layer) * sliceSize
			for row := 0; row < numRows; row++ {
				srcOff := srcBase + int64(row)*rowBytes
				dstOff := dstBase + int64(row)*pitch
				if srcOff+rowBytes > int64(len(data)) || dstOff+rowBytes > int64(len(mapped)) {
					break
				}
				copy(mapped[dstOff:dstOff+rowBytes], data[srcOff:srcOff+rowBytes])
			}
		}
		src.Unmap()

		for layer := 0; layer < arraySize; layer++ {
			set.cmd.CopyBufferToTexture(r.Texture, src, int64(layer)*sliceSize, mip, layer, pitch)
		}
	}

	set.cmd.ResourceBarrier([]rhi.TextureBarrier{{
		Texture: r.Texture,
		Barrier: rhi.Barrier{CurrentState: rhi.ResourceStateCopyDest, NewState: rhi.ResourceStateShaderResource},
	}}, nil, nil)
	if err := set.cmd.End(); err != nil {
		return err
	}
	return l.queue.Submit(rhi.QueueSubmitDesc{Cmds: []rhi.Cmd{set.cmd}, SignalFence: set.fence})
}
