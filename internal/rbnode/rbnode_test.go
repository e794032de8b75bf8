// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

package rbnode

import (
	"math/rand"
	"testing"
)

func TestFieldReadAtBirth(t *testing.T) {
	s := NewStore[int, string]()
	n := s.NewNode(5, "five", 1)

	if got := s.Key(n); got != 5 {
		t.Fatalf("Key = %d, want 5", got)
	}
	if got := s.Left(n, 1); got != Nil {
		t.Fatalf("Left at birth = %v, want Nil", got)
	}
	if got := s.Color(n, 1); got != Red {
		t.Fatalf("Color at birth = %v, want Red", got)
	}
}

func TestFieldWriteVisibleFromItsVersionOnward(t *testing.T) {
	s := NewStore[int, string]()
	n := s.NewNode(5, "five", 1)
	child := s.NewNode(3, "three", 1)

	s.SetLeft(n, child, 2)

	if got := s.Left(n, 1); got != Nil {
		t.Fatalf("Left at v=1 = %v, want Nil (write happened at v=2)", got)
	}
	if got := s.Left(n, 2); !s.SameNode(got, child, 2) {
		t.Fatalf("Left at v=2 = %v, want %v", got, child)
	}
	if got := s.Left(n, 5); !s.SameNode(got, child, 5) {
		t.Fatalf("Left at v=5 (future read) = %v, want %v", got, child)
	}
}

func TestOverflowPreservesAllVersionsAndCopyCount(t *testing.T) {
	s := NewStore[int, int]()
	n := s.NewNode(0, 0, 1)

	// Drive exactly maxModLog+2 writes to the same field to force one
	// overflow (the log holds maxModLog entries before copying).
	children := make([]NodeRef, 0, maxModLog+2)
	for i := 0; i < maxModLog+2; i++ {
		children = append(children, s.NewNode(i+1, i+1, 1))
	}

	for i, c := range children {
		s.SetLeft(n, c, uint64(i+2))
	}

	if got := s.CopyCount(); got != 1 {
		t.Fatalf("CopyCount = %d, want 1 after %d writes with M=%d", got, len(children), maxModLog)
	}

	// Every historical write must still be visible at its version and
	// all versions after it, proving the overflow copy carried the
	// full timeline forward rather than truncating it.
	for i, c := range children {
		v := uint64(i + 2)
		if got := s.Left(n, v); !s.SameNode(got, c, v) {
			t.Fatalf("Left(n, %d) = %v, want %v", v, got, c)
		}
	}
	last := uint64(len(children) + 1)
	if got := s.Left(n, last); !s.SameNode(got, children[len(children)-1], last) {
		t.Fatalf("Left(n, %d) after all writes = %v, want last write %v", last, got, children[len(children)-1])
	}
}

func TestOverflowPropagatesToChildrenAndParent(t *testing.T) {
	s := NewStore[int, int]()
	root := s.NewNode(10, 10, 1)
	left := s.NewNode(5, 5, 1)
	right := s.NewNode(15, 15, 1)

	s.SetLeft(root, left, 1)
	s.SetParent(left, root, 1)
	s.SetRight(root, right, 1)
	s.SetParent(right, root, 1)

	// Force root to overflow by writing its colour past the log bound.
	v := uint64(2)
	for i := 0; i < maxModLog+1; i++ {
		c := Black
		if i%2 == 0 {
			c = Red
		}
		s.SetColor(root, c, v)
		v++
	}

	// left and right's Parent link must still resolve to root's
	// logical identity after root materialised a copy record.
	if got := s.Parent(left, v); !s.SameNode(got, root, v) {
		t.Fatalf("Parent(left) after root overflow = %v, want root (%v)", got, root)
	}
	if got := s.Parent(right, v); !s.SameNode(got, root, v) {
		t.Fatalf("Parent(right) after root overflow = %v, want root (%v)", got, root)
	}
	if got := s.Left(root, v); !s.SameNode(got, left, v) {
		t.Fatalf("Left(root) after overflow = %v, want left (%v)", got, left)
	}
	if got := s.Right(root, v); !s.SameNode(got, right, v) {
		t.Fatalf("Right(root) after overflow = %v, want right (%v)", got, right)
	}
}

func TestSameNodeIgnoresKeyEquality(t *testing.T) {
	s := NewStore[int, int]()
	a := s.NewNode(7, 100, 1)
	b := s.NewNode(7, 200, 1)

	if s.SameNode(a, b, 1) {
		t.Fatalf("SameNode(a, b) = true for distinct nodes sharing a duplicate key")
	}
	if !s.SameNode(a, a, 1) {
		t.Fatalf("SameNode(a, a) = false, want true")
	}
}

// FuzzNodeStoreFieldResolution checks a store against a naive oracle
// that records every SetLeft write as a (version, child) pair in a
// plain slice and resolves reads by linear scan.
func FuzzNodeStoreFieldResolution(f *testing.F) {
	f.Add(uint64(1), uint64(20))
	f.Fuzz(func(t *testing.T, seed uint64, opCountU uint64) {
		opCount := int(opCountU % 200)
		rng := rand.New(rand.NewSource(int64(seed)))

		s := NewStore[int, int]()
		n := s.NewNode(0, 0, 1)
		children := make([]NodeRef, 8)
		for i := range children {
			children[i] = s.NewNode(i+1, i+1, 1)
		}

		type write struct {
			version uint64
			child   NodeRef
		}
		var oracle []write
		version := uint64(1)

		for i := 0; i < opCount; i++ {
			version++
			c := children[rng.Intn(len(children))]
			s.SetLeft(n, c, version)
			oracle = append(oracle, write{version: version, child: c})

			// Spot-check resolution at a random past version.
			checkAt := oracle[rng.Intn(len(oracle))].version
			want := NodeRef(0)
			for _, w := range oracle {
				if w.version <= checkAt {
					want = w.child
				}
			}
			if got := s.Left(n, checkAt); !s.SameNode(got, want, checkAt) {
				t.Fatalf("Left(n, %d) = %v, want %v (oracle)", checkAt, got, want)
			}
		}
	})
}
