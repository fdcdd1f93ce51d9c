package bind_group_provider

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// WriteBuffers queues every write on the backend, in order.
//
// Parameters:
//   - backend: the backend that created the providers' buffers
//   - writes: the writes to apply
//
// Returns:
//   - error: the first write error; later writes are not attempted
func WriteBuffers(backend gpu.Backend, writes []BufferWrite) error {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			return fmt.Errorf("%s: no buffer at binding %d", w.Provider.Label(), w.Binding)
		}
		if err := backend.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func sortEntries(entries []gpu.BindGroupEntry) {
	slices.SortFunc(entries, func(a, b gpu.BindGroupEntry) int {
		return cmp.Compare(a.Binding, b.Binding)
	})
}
