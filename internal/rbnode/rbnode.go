// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

// Package rbnode is the fat-node arena underlying the partially
// persistent red-black tree in package partree.
//
// Every logical tree node is represented by a chain of physical
// records ("fat nodes") in a single growable arena. The first record
// created for a logical node is its origin; once the origin's bounded
// modification log fills up, writing to it materialises a copy record
// and links origin.nextCopy to it (Driscoll-Sarnak-Sleator-Tarjan node
// copying). Reads at a given version walk forward through next-copy
// links to the latest applicable record, then scan that record's
// log for the most recent entry at or before the requested version.
//
// Records are never reclaimed: the arena only grows, which is what
// makes every past version safe to query for the lifetime of the
// Store.
package rbnode

import "github.com/bits-and-blooms/bitset"

// Color is the red-black colour of a logical node at some version.
type Color uint8

const (
	Red Color = iota
	Black
)

// NodeRef addresses a physical record in the arena. The zero value,
// Nil, is the process-wide black sentinel standing in for an empty
// subtree; its fields are never read or written.
type NodeRef uint32

// Nil is the arena index reserved for the sentinel record.
const Nil NodeRef = 0

// Field identifies which structural or colour slot a modification
// entry targets.
type Field uint8

const (
	FieldLeft Field = iota
	FieldRight
	FieldParent
	FieldColor
)

// maxModLog bounds the modification log per record (M in the design).
// M must be >= 2 for the DSST amortized bound to hold.
const maxModLog = 6

type modEntry struct {
	field   Field
	version uint64
	ref     NodeRef // payload for FieldLeft / FieldRight / FieldParent
	color   Color   // payload for FieldColor
}

// fatNode is one physical record: either the origin of a logical node
// or a copy materialised when the origin's log overflowed.
type fatNode[K any, V any] struct {
	key          K
	value        V
	birthVersion uint64

	// baseline, valid from birthVersion onward until overridden by a
	// mod-log entry.
	color               Color
	left, right, parent NodeRef

	mods []modEntry

	// inverse pointers: eagerly track the current logical value of
	// each structural link, used only to address neighbours in O(1)
	// when this record itself overflows.
	bkLeft, bkRight, bkParent NodeRef

	nextCopy NodeRef
}

// Store is the fat-node arena for one persistent engine instance.
// The zero value is not usable; construct with [NewStore].
type Store[K any, V any] struct {
	nodes []fatNode[K, V]

	// isCopy marks, per arena slot, whether that record was
	// materialised by an overflow (as opposed to being an origin).
	// Used only for diagnostics (CopyCount).
	isCopy *bitset.BitSet
}

// NewStore creates an empty arena, pre-populated with the nil
// sentinel at index 0.
func NewStore[K any, V any]() *Store[K, V] {
	s := &Store[K, V]{
		isCopy: bitset.New(0),
	}
	s.nodes = append(s.nodes, fatNode[K, V]{color: Black})
	return s
}

// NewNode allocates a fresh origin record for key/value, born at
// version, with all structural links nil and colour Red (the
// standard initial colour for a freshly inserted red-black node).
func (s *Store[K, V]) NewNode(key K, value V, version uint64) NodeRef {
	ref := NodeRef(len(s.nodes))
	s.nodes = append(s.nodes, fatNode[K, V]{
		key:          key,
		value:        value,
		birthVersion: version,
		color:        Red,
	})
	return ref
}

// Key returns the immutable key of the logical node addressed by ref.
func (s *Store[K, V]) Key(ref NodeRef) K { return s.nodes[ref].key }

// Value returns the immutable value of the logical node addressed by ref.
func (s *Store[K, V]) Value(ref NodeRef) V { return s.nodes[ref].value }

// resolve follows next-copy links from ref to the latest record that
// is live at version v.
func (s *Store[K, V]) resolve(ref NodeRef, v uint64) NodeRef {
	for {
		nc := s.nodes[ref].nextCopy
		if nc == Nil || s.nodes[nc].birthVersion > v {
			return ref
		}
		ref = nc
	}
}

// SameNode reports whether a and b address the same logical node at
// version v, i.e. whether resolving both through their next-copy
// chains at v lands on the same physical record. Comparing by key is
// not safe: the tree permits duplicate keys (see package partree's
// multiset insert semantics).
func (s *Store[K, V]) SameNode(a, b NodeRef, v uint64) bool {
	if a == Nil || b == Nil {
		return a == b
	}
	return s.resolve(a, v) == s.resolve(b, v)
}

// Color returns the colour of ref at version v. The nil sentinel is
// always Black.
func (s *Store[K, V]) Color(ref NodeRef, v uint64) Color {
	if ref == Nil {
		return Black
	}
	n := &s.nodes[s.resolve(ref, v)]
	val := n.color
	for _, m := range n.mods {
		if m.version > v {
			break
		}
		if m.field == FieldColor {
			val = m.color
		}
	}
	return val
}

// Left returns the left child of ref at version v, or Nil.
func (s *Store[K, V]) Left(ref NodeRef, v uint64) NodeRef { return s.field(ref, FieldLeft, v) }

// Right returns the right child of ref at version v, or Nil.
func (s *Store[K, V]) Right(ref NodeRef, v uint64) NodeRef { return s.field(ref, FieldRight, v) }

// Parent returns the parent of ref at version v, or Nil.
func (s *Store[K, V]) Parent(ref NodeRef, v uint64) NodeRef { return s.field(ref, FieldParent, v) }

func (s *Store[K, V]) field(ref NodeRef, f Field, v uint64) NodeRef {
	if ref == Nil {
		return Nil
	}
	n := &s.nodes[s.resolve(ref, v)]
	var val NodeRef
	switch f {
	case FieldLeft:
		val = n.left
	case FieldRight:
		val = n.right
	case FieldParent:
		val = n.parent
	}
	for _, m := range n.mods {
		if m.version > v {
			break
		}
		if m.field == f {
			val = m.ref
		}
	}
	return val
}

// IsRed reports whether ref is Red at version v. The nil sentinel is
// never red.
func (s *Store[K, V]) IsRed(ref NodeRef, v uint64) bool {
	return ref != Nil && s.Color(ref, v) == Red
}

// IsBlack reports whether ref is Black at version v. The nil sentinel
// is always black.
func (s *Store[K, V]) IsBlack(ref NodeRef, v uint64) bool {
	return ref == Nil || s.Color(ref, v) == Black
}

// MinSubtree walks left from ref to the smallest key in its subtree
// at version v.
func (s *Store[K, V]) MinSubtree(ref NodeRef, v uint64) NodeRef {
	for {
		l := s.Left(ref, v)
		if l == Nil {
			return ref
		}
		ref = l
	}
}

// SetColor records that ref's colour becomes c, effective at version
// v. A no-op if ref is already c at v.
func (s *Store[K, V]) SetColor(ref NodeRef, c Color, v uint64) {
	if ref == Nil || s.Color(ref, v) == c {
		return
	}
	s.setModification(ref, FieldColor, Nil, c, v)
}

// SetLeft records ref's left child becomes child, effective at v.
func (s *Store[K, V]) SetLeft(ref NodeRef, child NodeRef, v uint64) {
	s.setModification(ref, FieldLeft, child, Black, v)
}

// SetRight records ref's right child becomes child, effective at v.
func (s *Store[K, V]) SetRight(ref NodeRef, child NodeRef, v uint64) {
	s.setModification(ref, FieldRight, child, Black, v)
}

// SetParent records ref's parent becomes parent, effective at v.
func (s *Store[K, V]) SetParent(ref NodeRef, parent NodeRef, v uint64) {
	s.setModification(ref, FieldParent, parent, Black, v)
}

// setModification is the DSST field-write algorithm: append to the
// bounded log in place while there is room, otherwise materialise a
// copy record and propagate the address change to whichever
// neighbours' inverse pointers still reference the old record. The
// propagation recurses through setModification itself, which is what
// gives the overflow cascade its O(1) amortized cost per write.
func (s *Store[K, V]) setModification(ref NodeRef, f Field, childVal NodeRef, colorVal Color, v uint64) {
	if ref == Nil {
		panic("rbnode: set on nil sentinel")
	}

	cur := s.resolve(ref, v)
	n := &s.nodes[cur]

	if len(n.mods) < maxModLog {
		n.mods = append(n.mods, modEntry{field: f, version: v, ref: childVal, color: colorVal})
		switch f {
		case FieldLeft:
			n.bkLeft = childVal
		case FieldRight:
			n.bkRight = childVal
		case FieldParent:
			n.bkParent = childVal
		}
		return
	}

	// Overflow: flatten the log into a baseline, apply the new write,
	// and start a fresh copy record with an empty log.
	color, left, right, parent := n.color, n.left, n.right, n.parent
	for _, m := range n.mods {
		switch m.field {
		case FieldColor:
			color = m.color
		case FieldLeft:
			left = m.ref
		case FieldRight:
			right = m.ref
		case FieldParent:
			parent = m.ref
		}
	}
	switch f {
	case FieldColor:
		color = colorVal
	case FieldLeft:
		left = childVal
	case FieldRight:
		right = childVal
	case FieldParent:
		parent = childVal
	}

	newRef := NodeRef(len(s.nodes))
	s.nodes = append(s.nodes, fatNode[K, V]{
		key:          n.key,
		value:        n.value,
		birthVersion: v,
		color:        color,
		left:         left,
		right:        right,
		parent:       parent,
		bkLeft:       left,
		bkRight:      right,
		bkParent:     parent,
	})
	s.isCopy.Set(uint(newRef))
	s.nodes[cur].nextCopy = newRef

	bkLeft, bkRight, bkParent := left, right, parent

	if bkLeft != Nil && s.SameNode(s.Parent(bkLeft, v), newRef, v) {
		s.setModification(bkLeft, FieldParent, newRef, Black, v)
	}
	if bkRight != Nil && s.SameNode(s.Parent(bkRight, v), newRef, v) {
		s.setModification(bkRight, FieldParent, newRef, Black, v)
	}
	if bkParent == Nil {
		// The tree root just changed physical address; the caller
		// tracks root identity by origin ref and keeps working
		// transparently through resolve(), so there is nothing further
		// to notify here.
		return
	}
	switch {
	case s.SameNode(s.Left(bkParent, v), newRef, v):
		s.setModification(bkParent, FieldLeft, newRef, Black, v)
	case s.SameNode(s.Right(bkParent, v), newRef, v):
		s.setModification(bkParent, FieldRight, newRef, Black, v)
	}
}

// CopyCount reports how many arena slots are overflow copies rather
// than origins, across the whole history of the store. This is
// bounded at O(1 + total_writes/M) amortized per original node.
func (s *Store[K, V]) CopyCount() int { return int(s.isCopy.Count()) }

// NodeCount reports how many logical-node origins exist (i.e. how
// many keys were ever inserted), regardless of how many copies they
// have accumulated.
func (s *Store[K, V]) NodeCount() int { return len(s.nodes) - 1 - s.CopyCount() }
