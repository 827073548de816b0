package resources

import (
	"slices"

	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// Record is the GPU side of one BufferAttribute.
type Record struct {
	Buffer  gpu.Buffer
	Target  gpu.BufferTarget
	Type    gpu.DataType
	Version uint64
	Size    int

	refs int
}

// Refs returns the number of holders that acquired the record.
func (r *Record) Refs() int { return r.refs }

// Attributes maps attribute ids to GPU buffers.
type Attributes struct {
	device  gpu.Device
	records map[uint64]*Record
	info    *Info
	log     *zap.Logger
}

// Update makes the GPU buffer of attr current. The first call allocates and
// uploads everything; later calls upload only when the version advanced, and
// then only the merged dirty ranges when any were recorded.
func (a *Attributes) Update(attr *scene.BufferAttribute, target gpu.BufferTarget) error {
	data := attr.Bytes()
	rec := a.records[attr.ID]
	if rec == nil {
		rec = &Record{
			Buffer:  a.device.CreateBuffer(),
			Target:  target,
			Type:    attr.Type,
			Version: attr.Version(),
			Size:    len(data),
		}
		a.device.BindBuffer(target, rec.Buffer)
		a.device.BufferData(target, data, attr.Usage)
		attr.ClearUpdateRanges()
		a.records[attr.ID] = rec
		a.info.Buffers++
		a.info.BufferBytes += rec.Size
		return nil
	}

	if len(data) != rec.Size {
		return &core.ResourceSizeMismatchError{
			Resource:  "attribute",
			ID:        attr.ID,
			Allocated: rec.Size,
			Requested: len(data),
		}
	}
	if rec.Version == attr.Version() {
		return nil
	}

	a.device.BindBuffer(target, rec.Buffer)
	ranges := MergeRanges(attr.UpdateRanges(), len(data))
	if len(ranges) == 0 {
		a.device.BufferSubData(target, 0, data)
	}
	for _, r := range ranges {
		a.device.BufferSubData(target, r.Offset, data[r.Offset:r.Offset+r.Length])
	}
	attr.ClearUpdateRanges()
	rec.Version = attr.Version()
	return nil
}

// MergeRanges sorts ranges by offset, clamps them to size and merges those
// that overlap or touch. Empty ranges are dropped.
func MergeRanges(ranges []scene.Range, size int) []scene.Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(x, y scene.Range) int { return x.Offset - y.Offset })

	out := make([]scene.Range, 0, len(sorted))
	for _, r := range sorted {
		start := max(r.Offset, 0)
		end := min(r.Offset+r.Length, size)
		if end <= start {
			continue
		}
		if n := len(out); n > 0 && start <= out[n-1].Offset+out[n-1].Length {
			last := &out[n-1]
			last.Length = max(last.Length, end-last.Offset)
			continue
		}
		out = append(out, scene.Range{Offset: start, Length: end - start})
	}
	return out
}

func (a *Attributes) Get(attr *scene.BufferAttribute) (*Record, bool) {
	rec, ok := a.records[attr.ID]
	return rec, ok
}

// Acquire adds a reference to the record of attr. The record must exist.
func (a *Attributes) Acquire(attr *scene.BufferAttribute) {
	if rec := a.records[attr.ID]; rec != nil {
		rec.refs++
	}
}

// Release drops a reference and frees the buffer when none remain.
func (a *Attributes) Release(attr *scene.BufferAttribute) {
	rec := a.records[attr.ID]
	if rec == nil {
		return
	}
	rec.refs--
	if rec.refs <= 0 {
		a.Remove(attr)
	}
}

// Remove frees the buffer of attr regardless of references.
func (a *Attributes) Remove(attr *scene.BufferAttribute) {
	rec := a.records[attr.ID]
	if rec == nil {
		return
	}
	a.device.DeleteBuffer(rec.Buffer)
	delete(a.records, attr.ID)
	a.info.Buffers--
	a.info.BufferBytes -= rec.Size
	a.log.Debug("buffer freed", zap.Uint64("attribute", attr.ID), zap.Int("bytes", rec.Size))
}
