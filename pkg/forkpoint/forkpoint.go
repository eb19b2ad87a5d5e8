// Package forkpoint finds the most recent commit that HEAD shares with any
// other branch, together with its distance from HEAD.
package forkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
)

// ForkPoint is a commit shared by HEAD and another branch. Distance counts
// parent edges from HEAD.
type ForkPoint struct {
	Commit   gitlib.Hash
	Distance int
}

// Node is the part of a commit the walk needs.
type Node struct {
	Hash    gitlib.Hash
	Time    time.Time
	Parents []gitlib.Hash
}

// CommitSource loads fully parsed commits.
type CommitSource interface {
	Commit(ctx context.Context, hash gitlib.Hash) (Node, error)
}

// Walk runs the best-first search from head and the other branch tips.
// It returns nil when no commit is reachable from both sides, including when
// others is empty.
func Walk(ctx context.Context, src CommitSource, head gitlib.Hash, others []gitlib.Hash) (*ForkPoint, error) {
	if len(others) == 0 {
		return nil, nil //nolint:nilnil // no fork point is a normal outcome.
	}

	w := &walker{
		src:      src,
		head:     head,
		seen:     seenSet{},
		distance: map[gitlib.Hash]int{head: 0},
		queue:    &dateQueue{},
	}

	err := w.enqueue(ctx, head)
	if err != nil {
		return nil, err
	}

	for _, tip := range others {
		if w.seen.has(tip) {
			continue
		}

		err = w.enqueue(ctx, tip)
		if err != nil {
			return nil, err
		}
	}

	return w.run(ctx)
}

type walker struct {
	src      CommitSource
	head     gitlib.Hash
	seen     seenSet
	distance map[gitlib.Hash]int
	queue    *dateQueue
}

func (w *walker) enqueue(ctx context.Context, hash gitlib.Hash) error {
	node, err := w.src.Commit(ctx, hash)
	if err != nil {
		return fmt.Errorf("parse commit %s: %w", hash, err)
	}

	w.seen[hash] = struct{}{}
	w.queue.add(node)

	return nil
}

func (w *walker) run(ctx context.Context) (*ForkPoint, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, ok := w.queue.take()
		if !ok {
			return nil, nil //nolint:nilnil // queue exhausted without a fork point.
		}

		found, err := w.visit(ctx, next)
		if err != nil || found != nil {
			return found, err
		}

		delete(w.distance, next.Hash)
	}
}

// visit inspects the parents of one commit. A parent reached from the HEAD
// side and from another tip is the fork point.
func (w *walker) visit(ctx context.Context, next Node) (*ForkPoint, error) {
	d, fromHead := w.distance[next.Hash]

	for _, parent := range next.Parents {
		if parent == w.head {
			continue
		}

		dp, parentFromHead := w.distance[parent]
		parentSeen := w.seen.has(parent)

		if !fromHead && parentFromHead {
			return &ForkPoint{Commit: parent, Distance: dp}, nil
		}

		if fromHead && !parentFromHead && parentSeen {
			return &ForkPoint{Commit: parent, Distance: d + 1}, nil
		}

		if fromHead && (!parentFromHead || d+1 < dp) {
			w.distance[parent] = d + 1
		}

		if !parentSeen {
			err := w.enqueue(ctx, parent)
			if err != nil {
				return nil, err
			}
		}
	}

	return nil, nil //nolint:nilnil // keep walking.
}
