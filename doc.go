// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

// Package partree provides a partially persistent ordered map: a
// red-black tree where every past version, not just the current one,
// remains queryable by an explicit version number.
//
// Persistence is implemented with the Driscoll-Sarnak-Sleator-Tarjan
// (DSST) node-copying technique: each logical node is a small chain of
// "fat node" records, every record holding a bounded modification log
// plus inverse pointers that let an overflowing record notify its
// neighbours in O(1) amortized time. See internal/rbnode for the node
// store and [Engine] for the tree built on top of it.
//
// For a lighter-weight, ephemeral ordered set with the same successor
// contract but cache-oblivious density maintenance instead of
// persistence, see the sibling package [github.com/dskit/partree/pma].
package partree
