// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

package partree

import (
	"cmp"
	"errors"

	"github.com/dskit/partree/internal/rbnode"
)

// ErrVersionOutOfRange is returned by [Engine.NodeInfoIter] when given a
// version greater than the engine's current latest version. The other
// queries (Len, IsEmpty, Get, Contains, Successor, Predecessor) report
// such a version by returning false instead of an error.
var ErrVersionOutOfRange = errors.New("partree: version out of range")

// Color mirrors a red-black node's colour at some version, exported so
// callers of NodeInfoIter don't need to reach into internal/rbnode.
type Color uint8

const (
	Red Color = iota
	Black
)

func (c Color) String() string {
	if c == Red {
		return "R"
	}
	return "N"
}

// NodeInfo is one record yielded by [Engine.NodeInfoIter]: a key/value
// pair together with its colour and depth from the version root.
type NodeInfo[K cmp.Ordered, V any] struct {
	Key   K
	Value V
	Color Color
	Depth int
}

// rootEntry is one slot of the version registry: the root of the tree
// immediately after the v-th mutation, and its size.
type rootEntry struct {
	root rbnode.NodeRef
	size int
}

// Engine is a partially persistent ordered map: a red-black tree whose
// every past version remains queryable by version number. The zero
// value is not usable; construct with [OpenPersistent].
//
// Engine is not safe for concurrent use; callers must serialise access
// themselves. It is intentionally used only through a pointer receiver,
// so there is no accidental-copy hazard worth a vet-only guard field.
type Engine[K cmp.Ordered, V any] struct {
	store *rbnode.Store[K, V]
	roots []rootEntry
}

// OpenPersistent creates an empty engine at version 0.
func OpenPersistent[K cmp.Ordered, V any]() *Engine[K, V] {
	return &Engine[K, V]{
		store: rbnode.NewStore[K, V](),
		roots: []rootEntry{{root: rbnode.Nil, size: 0}},
	}
}

// LatestVersion returns V_cur, the version produced by the most recent
// mutation (0 if none have occurred yet).
func (e *Engine[K, V]) LatestVersion() uint64 { return uint64(len(e.roots) - 1) }

// Len returns the number of keys live at version v, or false if v is
// out of range.
func (e *Engine[K, V]) Len(v uint64) (int, bool) {
	if v > e.LatestVersion() {
		return 0, false
	}
	return e.roots[v].size, true
}

// IsEmpty reports whether version v holds no keys.
func (e *Engine[K, V]) IsEmpty(v uint64) (bool, bool) {
	n, ok := e.Len(v)
	return n == 0, ok
}

func (e *Engine[K, V]) colorOf(ref rbnode.NodeRef, v uint64) Color {
	if e.store.Color(ref, v) == rbnode.Red {
		return Red
	}
	return Black
}

// Get returns the value of the first node matching key at version v,
// walking a BST search path resolved at v.
func (e *Engine[K, V]) Get(key K, v uint64) (V, bool) {
	var zero V
	ref, ok := e.findNode(key, v)
	if !ok {
		return zero, false
	}
	return e.store.Value(ref), true
}

// Contains reports whether key is present at version v.
func (e *Engine[K, V]) Contains(key K, v uint64) bool {
	_, ok := e.findNode(key, v)
	return ok
}

func (e *Engine[K, V]) findNode(key K, v uint64) (rbnode.NodeRef, bool) {
	if v > e.LatestVersion() {
		return rbnode.Nil, false
	}
	cur := e.roots[v].root
	for cur != rbnode.Nil {
		k := e.store.Key(cur)
		switch {
		case key == k:
			return cur, true
		case cmp.Less(key, k):
			cur = e.store.Left(cur, v)
		default:
			cur = e.store.Right(cur, v)
		}
	}
	return rbnode.Nil, false
}

// Successor returns the value of the smallest key strictly greater
// than key at version v, or false if none exists.
func (e *Engine[K, V]) Successor(key K, v uint64) (V, bool) {
	return e.neighbour(key, v, true)
}

// Predecessor returns the value of the largest key strictly less than
// key at version v, or false if none exists.
func (e *Engine[K, V]) Predecessor(key K, v uint64) (V, bool) {
	return e.neighbour(key, v, false)
}

// neighbour implements successor (greater=true) and predecessor
// (greater=false) by the standard BST candidate-tracking walk: descend
// toward key, remembering the last ancestor on the correct side.
func (e *Engine[K, V]) neighbour(key K, v uint64, greater bool) (V, bool) {
	var zero V
	if v > e.LatestVersion() {
		return zero, false
	}
	cur := e.roots[v].root
	cand := rbnode.Nil
	for cur != rbnode.Nil {
		k := e.store.Key(cur)
		if greater {
			if cmp.Less(key, k) {
				cand = cur
				cur = e.store.Left(cur, v)
			} else {
				cur = e.store.Right(cur, v)
			}
		} else {
			if cmp.Less(k, key) {
				cand = cur
				cur = e.store.Right(cur, v)
			} else {
				cur = e.store.Left(cur, v)
			}
		}
	}
	if cand == rbnode.Nil {
		return zero, false
	}
	return e.store.Value(cand), true
}

// NodeInfoIter returns a single-pass, restartable iterator over
// version v's tree in ascending key order, each entry tagged with its
// colour and depth from the version root. It re-resolves every link at
// v on each step rather than capturing any mutable state, so it stays
// correct even if later mutations are made to the engine while earlier
// iterators remain referenced.
func (e *Engine[K, V]) NodeInfoIter(v uint64) (func(yield func(NodeInfo[K, V]) bool), error) {
	if v > e.LatestVersion() {
		return nil, ErrVersionOutOfRange
	}
	root := e.roots[v].root
	return func(yield func(NodeInfo[K, V]) bool) {
		type frame struct {
			ref   rbnode.NodeRef
			depth int
		}
		var stack []frame
		push := func(ref rbnode.NodeRef, depth int) {
			for ref != rbnode.Nil {
				stack = append(stack, frame{ref, depth})
				ref = e.store.Left(ref, v)
				depth++
			}
		}
		push(root, 0)
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			info := NodeInfo[K, V]{
				Key:   e.store.Key(top.ref),
				Value: e.store.Value(top.ref),
				Color: e.colorOf(top.ref, v),
				Depth: top.depth,
			}
			if !yield(info) {
				return
			}
			push(e.store.Right(top.ref, v), top.depth+1)
		}
	}, nil
}
