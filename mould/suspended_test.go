// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import "testing"

type fakeWorker struct{ Worker[int] }

func TestSuspendedTableInsertRemove(t *testing.T) {
	tbl := newSuspendedTable[int](2)
	w1 := &fakeWorker{}
	id1, ok := tbl.insert(w1)
	if !ok {
		t.Fatal("insert 1 should succeed")
	}
	if tbl.len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.len())
	}
	got, ok := tbl.remove(id1)
	if !ok || got != Worker[int](w1) {
		t.Fatalf("remove(%d) = %v, %v", id1, got, ok)
	}
	if tbl.len() != 0 {
		t.Fatalf("len = %d, want 0", tbl.len())
	}
}

func TestSuspendedTableCapacity(t *testing.T) {
	tbl := newSuspendedTable[int](1)
	if _, ok := tbl.insert(&fakeWorker{}); !ok {
		t.Fatal("first insert should succeed")
	}
	if _, ok := tbl.insert(&fakeWorker{}); ok {
		t.Fatal("second insert should fail: table full")
	}
}

func TestSuspendedTableRemoveUnknown(t *testing.T) {
	tbl := newSuspendedTable[int](2)
	if _, ok := tbl.remove(99); ok {
		t.Fatal("remove of unknown TaskId should fail")
	}
}

func TestSuspendedTableSlotReuse(t *testing.T) {
	tbl := newSuspendedTable[int](2)
	id1, _ := tbl.insert(&fakeWorker{})
	tbl.remove(id1)
	id2, ok := tbl.insert(&fakeWorker{})
	if !ok || id2 != id1 {
		t.Fatalf("expected slot reuse: id1=%d id2=%d", id1, id2)
	}
}
