package connection

import (
	"reflect"
	"testing"
)

func TestSubscriptions(t *testing.T) {
	s := NewSubscriptions()

	if !s.Add("gate-2") {
		t.Error("Add(gate-2) = false, want true")
	}
	if !s.Add("gate-1") {
		t.Error("Add(gate-1) = false, want true")
	}
	if s.Add("gate-1") {
		t.Error("duplicate Add should return false")
	}

	if got := s.Topics(); !reflect.DeepEqual(got, []string{"gate-1", "gate-2"}) {
		t.Errorf("Topics = %v", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	if !s.Remove("gate-2") {
		t.Error("Remove(gate-2) = false, want true")
	}
	if s.Remove("gate-2") {
		t.Error("second Remove should return false")
	}
	if s.Has("gate-2") {
		t.Error("gate-2 should be gone")
	}
	if !s.Has("gate-1") {
		t.Error("gate-1 should remain")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if got := s.Topics(); len(got) != 0 {
		t.Errorf("Topics after Clear = %v", got)
	}
}
