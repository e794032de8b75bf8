// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

package partree

import (
	"cmp"

	"github.com/dskit/partree/internal/rbnode"
)

// Insert adds (key, value) to the engine, advancing the latest version
// by one. Keys are not deduplicated: equal keys are inserted to the
// right of any existing node with that key, producing a multiset.
func (e *Engine[K, V]) Insert(key K, value V) {
	v := e.LatestVersion() + 1
	root := e.roots[v-1].root

	y := rbnode.Nil
	x := root
	for x != rbnode.Nil {
		y = x
		if cmp.Less(key, e.store.Key(x)) {
			x = e.store.Left(x, v)
		} else {
			x = e.store.Right(x, v)
		}
	}

	z := e.store.NewNode(key, value, v)
	if y == rbnode.Nil {
		root = z
	} else {
		e.store.SetParent(z, y, v)
		if cmp.Less(key, e.store.Key(y)) {
			e.store.SetLeft(y, z, v)
		} else {
			e.store.SetRight(y, z, v)
		}
	}

	e.insertFixup(&root, z, v)
	e.roots = append(e.roots, rootEntry{root: root, size: e.roots[v-1].size + 1})
}

// Remove deletes the first node matching key at the latest version, if
// any. A miss is not an error and leaves the version counter
// unchanged; see [Engine.CollegeRemove] for the variant that always
// advances the version.
func (e *Engine[K, V]) Remove(key K) (V, bool) {
	var zero V
	cur := e.LatestVersion()
	z, ok := e.findNode(key, cur)
	if !ok {
		return zero, false
	}
	return e.removeFound(z), true
}

// CollegeRemove deletes the first node matching key at the latest
// version, the same as [Engine.Remove], except that a miss still
// advances the version counter. The textual driver binds to this
// flavour rather than [Engine.Remove].
func (e *Engine[K, V]) CollegeRemove(key K) (V, bool) {
	var zero V
	cur := e.LatestVersion()
	z, ok := e.findNode(key, cur)
	if !ok {
		e.roots = append(e.roots, rootEntry{root: e.roots[cur].root, size: e.roots[cur].size})
		return zero, false
	}
	return e.removeFound(z), true
}

func (e *Engine[K, V]) removeFound(z rbnode.NodeRef) V {
	v := e.LatestVersion() + 1
	root := e.roots[v-1].root
	val := e.store.Value(z)
	e.deleteNode(&root, z, v)
	e.roots = append(e.roots, rootEntry{root: root, size: e.roots[v-1].size - 1})
	return val
}

// leftRotate and rightRotate implement the standard CLRS rotations as
// four versioned link writes plus a possible root re-registration when
// the rotated subtree was the whole tree.
func (e *Engine[K, V]) leftRotate(root *rbnode.NodeRef, x rbnode.NodeRef, v uint64) {
	s := e.store
	y := s.Right(x, v)
	yLeft := s.Left(y, v)
	s.SetRight(x, yLeft, v)
	if yLeft != rbnode.Nil {
		s.SetParent(yLeft, x, v)
	}
	xParent := s.Parent(x, v)
	s.SetParent(y, xParent, v)
	switch {
	case xParent == rbnode.Nil:
		*root = y
	case s.SameNode(x, s.Left(xParent, v), v):
		s.SetLeft(xParent, y, v)
	default:
		s.SetRight(xParent, y, v)
	}
	s.SetLeft(y, x, v)
	s.SetParent(x, y, v)
}

func (e *Engine[K, V]) rightRotate(root *rbnode.NodeRef, x rbnode.NodeRef, v uint64) {
	s := e.store
	y := s.Left(x, v)
	yRight := s.Right(y, v)
	s.SetLeft(x, yRight, v)
	if yRight != rbnode.Nil {
		s.SetParent(yRight, x, v)
	}
	xParent := s.Parent(x, v)
	s.SetParent(y, xParent, v)
	switch {
	case xParent == rbnode.Nil:
		*root = y
	case s.SameNode(x, s.Right(xParent, v), v):
		s.SetRight(xParent, y, v)
	default:
		s.SetLeft(xParent, y, v)
	}
	s.SetRight(y, x, v)
	s.SetParent(x, y, v)
}

// insertFixup restores red-black invariants after a red leaf insertion,
// expressed entirely through versioned field operations so any
// overflow copying triggered along the way is transparent to the
// fixup's control flow.
func (e *Engine[K, V]) insertFixup(root *rbnode.NodeRef, z rbnode.NodeRef, v uint64) {
	s := e.store
	for !s.SameNode(z, *root, v) && s.IsRed(s.Parent(z, v), v) {
		p := s.Parent(z, v)
		gp := s.Parent(p, v)
		if s.SameNode(p, s.Left(gp, v), v) {
			uncle := s.Right(gp, v)
			if s.IsRed(uncle, v) {
				s.SetColor(p, rbnode.Black, v)
				s.SetColor(uncle, rbnode.Black, v)
				s.SetColor(gp, rbnode.Red, v)
				z = gp
				continue
			}
			if s.SameNode(z, s.Right(p, v), v) {
				z = p
				e.leftRotate(root, z, v)
				p = s.Parent(z, v)
				gp = s.Parent(p, v)
			}
			s.SetColor(p, rbnode.Black, v)
			s.SetColor(gp, rbnode.Red, v)
			e.rightRotate(root, gp, v)
		} else {
			uncle := s.Left(gp, v)
			if s.IsRed(uncle, v) {
				s.SetColor(p, rbnode.Black, v)
				s.SetColor(uncle, rbnode.Black, v)
				s.SetColor(gp, rbnode.Red, v)
				z = gp
				continue
			}
			if s.SameNode(z, s.Left(p, v), v) {
				z = p
				e.rightRotate(root, z, v)
				p = s.Parent(z, v)
				gp = s.Parent(p, v)
			}
			s.SetColor(p, rbnode.Black, v)
			s.SetColor(gp, rbnode.Red, v)
			e.leftRotate(root, gp, v)
		}
	}
	s.SetColor(*root, rbnode.Black, v)
}

// transplant replaces the subtree rooted at u with the subtree rooted
// at w within the tree addressed by root, at version v.
func (e *Engine[K, V]) transplant(root *rbnode.NodeRef, u, w rbnode.NodeRef, v uint64) {
	s := e.store
	up := s.Parent(u, v)
	switch {
	case up == rbnode.Nil:
		*root = w
	case s.SameNode(u, s.Left(up, v), v):
		s.SetLeft(up, w, v)
	default:
		s.SetRight(up, w, v)
	}
	if w != rbnode.Nil {
		s.SetParent(w, up, v)
	}
}

// deleteNode removes the logical node z from the tree addressed by
// root at version v, following CLRS RB-delete: replace a two-child
// victim by its in-order successor, transplant, and run delete_fixup
// iff the physically removed record was Black.
func (e *Engine[K, V]) deleteNode(root *rbnode.NodeRef, z rbnode.NodeRef, v uint64) {
	s := e.store
	y := z
	yOriginalColor := s.Color(y, v)
	var x, xParent rbnode.NodeRef

	switch {
	case s.Left(z, v) == rbnode.Nil:
		x = s.Right(z, v)
		xParent = s.Parent(z, v)
		e.transplant(root, z, x, v)
	case s.Right(z, v) == rbnode.Nil:
		x = s.Left(z, v)
		xParent = s.Parent(z, v)
		e.transplant(root, z, x, v)
	default:
		y = s.MinSubtree(s.Right(z, v), v)
		yOriginalColor = s.Color(y, v)
		x = s.Right(y, v)
		if s.SameNode(s.Parent(y, v), z, v) {
			xParent = y
		} else {
			xParent = s.Parent(y, v)
			e.transplant(root, y, x, v)
			s.SetRight(y, s.Right(z, v), v)
			s.SetParent(s.Right(y, v), y, v)
		}
		e.transplant(root, z, y, v)
		s.SetLeft(y, s.Left(z, v), v)
		s.SetParent(s.Left(y, v), y, v)
		s.SetColor(y, s.Color(z, v), v)
	}

	if yOriginalColor == rbnode.Black {
		e.deleteFixup(root, x, xParent, v)
	}
}

// deleteFixup restores red-black invariants after removing a Black
// node. x is the node that moved into the removed position (possibly
// the nil sentinel); xParent is threaded through explicitly because
// the shared nil sentinel cannot carry a per-call parent link the way
// a per-tree sentinel could in a non-persistent implementation.
func (e *Engine[K, V]) deleteFixup(root *rbnode.NodeRef, x, xParent rbnode.NodeRef, v uint64) {
	s := e.store
	for !s.SameNode(x, *root, v) && s.IsBlack(x, v) {
		parent := xParent
		if x != rbnode.Nil {
			parent = s.Parent(x, v)
		}
		if s.SameNode(x, s.Left(parent, v), v) {
			w := s.Right(parent, v)
			if s.IsRed(w, v) {
				s.SetColor(w, rbnode.Black, v)
				s.SetColor(parent, rbnode.Red, v)
				e.leftRotate(root, parent, v)
				w = s.Right(parent, v)
			}
			if s.IsBlack(s.Left(w, v), v) && s.IsBlack(s.Right(w, v), v) {
				s.SetColor(w, rbnode.Red, v)
				x = parent
				xParent = s.Parent(parent, v)
			} else {
				if s.IsBlack(s.Right(w, v), v) {
					s.SetColor(s.Left(w, v), rbnode.Black, v)
					s.SetColor(w, rbnode.Red, v)
					e.rightRotate(root, w, v)
					w = s.Right(parent, v)
				}
				s.SetColor(w, s.Color(parent, v), v)
				s.SetColor(parent, rbnode.Black, v)
				s.SetColor(s.Right(w, v), rbnode.Black, v)
				e.leftRotate(root, parent, v)
				x = *root
			}
		} else {
			w := s.Left(parent, v)
			if s.IsRed(w, v) {
				s.SetColor(w, rbnode.Black, v)
				s.SetColor(parent, rbnode.Red, v)
				e.rightRotate(root, parent, v)
				w = s.Left(parent, v)
			}
			if s.IsBlack(s.Right(w, v), v) && s.IsBlack(s.Left(w, v), v) {
				s.SetColor(w, rbnode.Red, v)
				x = parent
				xParent = s.Parent(parent, v)
			} else {
				if s.IsBlack(s.Left(w, v), v) {
					s.SetColor(s.Right(w, v), rbnode.Black, v)
					s.SetColor(w, rbnode.Red, v)
					e.leftRotate(root, w, v)
					w = s.Left(parent, v)
				}
				s.SetColor(w, s.Color(parent, v), v)
				s.SetColor(parent, rbnode.Black, v)
				s.SetColor(s.Left(w, v), rbnode.Black, v)
				e.rightRotate(root, parent, v)
				x = *root
			}
		}
	}
	s.SetColor(x, rbnode.Black, v)
}
