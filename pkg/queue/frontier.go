package queue

import (
	"container/heap"

	"github.com/datasniffing/caramelo/pkg/models"
)

// frontierItem represents an item in the frontier heap
type frontierItem struct {
	workItem models.WorkItem
	seq      uint64 // Insertion order, breaks ties between equal depths
	index    int    // The index of the item in the heap (required by heap interface)
}

// itemHeap implements heap.Interface ordered by (depth, insertion order)
type itemHeap []*frontierItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].workItem.Depth != h[j].workItem.Depth {
		return h[i].workItem.Depth < h[j].workItem.Depth
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[:n-1]
	return item
}

// Frontier is the breadth-first worklist of one crawl run.
// Items come out shallowest first and, within a depth, in discovery order.
// A Frontier is owned by a single run and is not safe for concurrent use.
type Frontier struct {
	items itemHeap
	next  uint64
}

// NewFrontier creates an empty Frontier
func NewFrontier() *Frontier {
	f := &Frontier{}
	heap.Init(&f.items)
	return f
}

// Push adds a work item
func (f *Frontier) Push(item models.WorkItem) {
	heap.Push(&f.items, &frontierItem{workItem: item, seq: f.next})
	f.next++
}

// Pop removes the next item in breadth-first order.
// Returns false when the frontier is empty.
func (f *Frontier) Pop() (models.WorkItem, bool) {
	if len(f.items) == 0 {
		return models.WorkItem{}, false
	}
	return heap.Pop(&f.items).(*frontierItem).workItem, true
}

// Len returns the number of queued items
func (f *Frontier) Len() int { return len(f.items) }
