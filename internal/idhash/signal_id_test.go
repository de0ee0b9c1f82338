package idhash

import "testing"

func TestComputeSignalID(t *testing.T) {
	id1 := ComputeSignalID("BONKX", "addr1", 1704067200000)
	id2 := ComputeSignalID("BONKX", "addr1", 1704067200000)
	id3 := ComputeSignalID("BONKX", "addr1", 1704067200001)
	id4 := ComputeSignalID("BONKY", "addr1", 1704067200000)

	if len(id1) != 64 {
		t.Errorf("len = %d, want 64", len(id1))
	}
	if id1 != id2 {
		t.Error("same inputs must produce the same ID")
	}
	if id1 == id3 {
		t.Error("different timestamp must produce a different ID")
	}
	if id1 == id4 {
		t.Error("different token must produce a different ID")
	}
}

func TestComputeSignalID_FieldBoundaries(t *testing.T) {
	// The separator keeps adjacent fields from colliding.
	a := ComputeSignalID("AB", "C", 1)
	b := ComputeSignalID("A", "BC", 1)
	if a == b {
		t.Error("field boundary collision")
	}
}

func TestComputePositionID(t *testing.T) {
	id1 := ComputePositionID("signal1", 1704067200000)
	id2 := ComputePositionID("signal1", 1704067200000)
	id3 := ComputePositionID("signal1", 1704067200001)

	if len(id1) != 64 {
		t.Errorf("len = %d, want 64", len(id1))
	}
	if id1 != id2 {
		t.Error("same inputs must produce the same ID")
	}
	if id1 == id3 {
		t.Error("different open time must produce a different ID")
	}
}
