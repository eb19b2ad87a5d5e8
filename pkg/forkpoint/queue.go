package forkpoint

import (
	"container/heap"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

type queued struct {
	node Node
	seq  uint64
}

// dateQueue orders commits newest first; equal times keep insertion order.
type dateQueue struct {
	items []queued
	next  uint64
}

func (q *dateQueue) Len() int { return len(q.items) }

func (q *dateQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if !a.node.Time.Equal(b.node.Time) {
		return a.node.Time.After(b.node.Time)
	}

	return a.seq < b.seq
}

func (q *dateQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *dateQueue) Push(x any) {
	q.items = append(q.items, x.(queued)) //nolint:forcetypeassert // only add pushes.
}

func (q *dateQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]

	return item
}

func (q *dateQueue) add(node Node) {
	heap.Push(q, queued{node: node, seq: q.next})
	q.next++
}

func (q *dateQueue) take() (Node, bool) {
	if q.Len() == 0 {
		return Node{}, false
	}

	return heap.Pop(q).(queued).node, true //nolint:forcetypeassert // only add pushes.
}

// seenSet records commits already parsed and enqueued.
type seenSet map[gitlib.Hash]struct{}

func (s seenSet) has(h gitlib.Hash) bool {
	_, ok := s[h]

	return ok
}
