// Package heapkit replays allocation scripts against the heap in package
// allocator.
package heapkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/QuangTung97/heapkit/allocator"
)

var (
	// ErrOutOfMemory indicates the heap could not satisfy a request.
	ErrOutOfMemory = errors.New("heapkit: out of memory")

	// ErrCorruptPayload indicates a block's contents changed while the client
	// owned it.
	ErrCorruptPayload = errors.New("heapkit: payload corrupted")
)

// ReplayConfig ...
type ReplayConfig struct {
	// ValidateEach runs the heap validator after every request.
	ValidateEach bool

	Logger *slog.Logger
}

// Result summarizes one replayed script.
type Result struct {
	Name        string
	Requests    int
	PeakPayload uint64
	RegionSize  uint64
	Utilization Rational
}

type replayBlock struct {
	addr uint64
	size uint64
}

// Replayer drives a heap through scripts, checking that every block keeps
// the bytes written into it.
type Replayer struct {
	heap   *allocator.Heap
	conf   ReplayConfig
	logger *slog.Logger

	blocks  map[int]replayBlock
	payload uint64
	peak    uint64
}

// NewReplayer ...
func NewReplayer(heap *allocator.Heap, conf ReplayConfig) *Replayer {
	logger := conf.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Replayer{
		heap:   heap,
		conf:   conf,
		logger: logger,
		blocks: map[int]replayBlock{},
	}
}

// Run replays s. Blocks still live at the end stay allocated.
func (r *Replayer) Run(ctx context.Context, s *Script) (Result, error) {
	result := Result{
		Name:       s.Name,
		RegionSize: r.heap.RegionSize(),
	}

	for _, req := range s.Requests {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := r.apply(req); err != nil {
			r.logger.Error("request failed",
				"script", s.Name, "line", req.Line, "op", req.Op.String(), "id", req.ID, "err", err)
			return result, fmt.Errorf("%s:%d: %s %d: %w", s.Name, req.Line, req.Op, req.ID, err)
		}

		if r.conf.ValidateEach {
			if err := r.heap.Check(); err != nil {
				return result, fmt.Errorf("%s:%d: heap invalid: %w", s.Name, req.Line, err)
			}
		}
		result.Requests++
	}

	result.PeakPayload = r.peak
	result.Utilization = NewRational(r.peak, result.RegionSize)
	r.logger.Info("script replayed",
		"script", s.Name, "requests", result.Requests, "utilization", result.Utilization.String())
	return result, nil
}

func (r *Replayer) apply(req Request) error {
	switch req.Op {
	case OpAllocate:
		return r.allocate(req)
	case OpResize:
		return r.resize(req)
	case OpFree:
		return r.free(req)
	default:
		return fmt.Errorf("%w: unknown request %s", ErrBadScript, req.Op)
	}
}

func (r *Replayer) allocate(req Request) error {
	if _, ok := r.blocks[req.ID]; ok {
		return fmt.Errorf("%w: id %d already allocated", ErrBadScript, req.ID)
	}
	if req.Size == 0 {
		r.blocks[req.ID] = replayBlock{addr: allocator.NullPtr}
		return nil
	}

	addr, ok := r.heap.Allocate(req.Size)
	if !ok {
		return fmt.Errorf("%w: allocate %d bytes", ErrOutOfMemory, req.Size)
	}
	r.fill(addr, 0, req.Size, req.ID)
	r.blocks[req.ID] = replayBlock{addr: addr, size: req.Size}
	r.grow(req.Size, 0)
	return nil
}

func (r *Replayer) resize(req Request) error {
	old, ok := r.blocks[req.ID]
	if !ok {
		old = replayBlock{addr: allocator.NullPtr}
	}
	if err := r.verify(old, req.ID); err != nil {
		return err
	}

	addr, ok := r.heap.Resize(old.addr, req.Size)
	if req.Size == 0 {
		delete(r.blocks, req.ID)
		r.payload -= old.size
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: resize to %d bytes", ErrOutOfMemory, req.Size)
	}

	kept := replayBlock{addr: addr, size: old.size}
	if req.Size < kept.size {
		kept.size = req.Size
	}
	if err := r.verify(kept, req.ID); err != nil {
		return err
	}
	if req.Size > kept.size {
		r.fill(addr, kept.size, req.Size, req.ID)
	}

	r.blocks[req.ID] = replayBlock{addr: addr, size: req.Size}
	r.grow(req.Size, old.size)
	return nil
}

func (r *Replayer) free(req Request) error {
	b, ok := r.blocks[req.ID]
	if !ok {
		return fmt.Errorf("%w: id %d is not allocated", ErrBadScript, req.ID)
	}
	if err := r.verify(b, req.ID); err != nil {
		return err
	}

	r.heap.Deallocate(b.addr)
	delete(r.blocks, req.ID)
	r.payload -= b.size
	return nil
}

func (r *Replayer) grow(newSize uint64, oldSize uint64) {
	r.payload = r.payload - oldSize + newSize
	if r.payload > r.peak {
		r.peak = r.payload
	}
}

func patternByte(id int) byte {
	return byte(id*7 + 1)
}

func (r *Replayer) fill(addr uint64, from uint64, to uint64, id int) {
	payload := r.heap.Payload(addr)
	value := patternByte(id)
	for i := from; i < to; i++ {
		payload[i] = value
	}
}

func (r *Replayer) verify(b replayBlock, id int) error {
	if b.size == 0 {
		return nil
	}
	payload := r.heap.Payload(b.addr)
	if uint64(len(payload)) < b.size {
		return fmt.Errorf("%w: block 0x%X holds %d bytes, expected %d",
			ErrCorruptPayload, b.addr, len(payload), b.size)
	}
	value := patternByte(id)
	for i := uint64(0); i < b.size; i++ {
		if payload[i] != value {
			return fmt.Errorf("%w: block 0x%X byte %d is 0x%02x, expected 0x%02x",
				ErrCorruptPayload, b.addr, i, payload[i], value)
		}
	}
	return nil
}
