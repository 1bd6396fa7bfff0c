package logsclient

import (
	"container/heap"
	"sort"

	"github.com/sleuthops/sleuth/pkg/models"
)

// tailEntry pairs a log entry with its arrival sequence for stable ordering
// of equal timestamps.
type tailEntry struct {
	entry models.LogEntry
	seq   int
}

// tailHeap is a min-heap on (timestamp, seq). The root is always the oldest
// retained entry, so pushing beyond capacity evicts the oldest in O(log n).
type tailHeap []tailEntry

func (h tailHeap) Len() int { return len(h) }

func (h tailHeap) Less(i, j int) bool {
	if h[i].entry.Timestamp.Equal(h[j].entry.Timestamp) {
		return h[i].seq < h[j].seq
	}
	return h[i].entry.Timestamp.Before(h[j].entry.Timestamp)
}

func (h tailHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *tailHeap) Push(x any) { *h = append(*h, x.(tailEntry)) }

func (h *tailHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TailBuffer retains the newest N entries of an arbitrarily long stream in
// O(N) memory. Entries come back sorted ascending by timestamp, ties broken
// by arrival order.
type TailBuffer struct {
	limit int
	h     tailHeap
	seq   int
}

// NewTailBuffer creates a buffer keeping at most limit entries.
// A non-positive limit defaults to 1.
func NewTailBuffer(limit int) *TailBuffer {
	if limit <= 0 {
		limit = 1
	}
	return &TailBuffer{limit: limit}
}

// Add offers one entry to the buffer.
func (b *TailBuffer) Add(entry models.LogEntry) {
	item := tailEntry{entry: entry, seq: b.seq}
	b.seq++
	if b.h.Len() < b.limit {
		heap.Push(&b.h, item)
		return
	}
	// Full: only keep the new entry if it is newer than the oldest retained.
	root := b.h[0]
	if root.entry.Timestamp.Before(item.entry.Timestamp) ||
		(root.entry.Timestamp.Equal(item.entry.Timestamp) && root.seq < item.seq) {
		b.h[0] = item
		heap.Fix(&b.h, 0)
	}
}

// Entries returns the retained entries sorted ascending by timestamp.
func (b *TailBuffer) Entries() []models.LogEntry {
	items := make([]tailEntry, len(b.h))
	copy(items, b.h)
	sort.Slice(items, func(i, j int) bool {
		if items[i].entry.Timestamp.Equal(items[j].entry.Timestamp) {
			return items[i].seq < items[j].seq
		}
		return items[i].entry.Timestamp.Before(items[j].entry.Timestamp)
	})
	out := make([]models.LogEntry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// Len returns the number of retained entries.
func (b *TailBuffer) Len() int { return b.h.Len() }
