package sequence

import (
	"sync"
	"testing"
)

func TestFlagStore_Defaults(t *testing.T) {
	s := NewFlagStore()

	if s.GetFlag("never_set") {
		t.Error("GetFlag() = true for unset flag, want false")
	}
	if s.HasFlag("never_set") {
		t.Error("HasFlag() = true for unset flag")
	}
}

func TestFlagStore_SetGetClear(t *testing.T) {
	s := NewFlagStore()

	s.SetFlag("armed", true)
	if !s.GetFlag("armed") {
		t.Error("GetFlag(armed) = false after SetFlag(true)")
	}
	if !s.HasFlag("armed") {
		t.Error("HasFlag(armed) = false after SetFlag")
	}

	s.SetFlag("armed", false)
	if s.GetFlag("armed") {
		t.Error("GetFlag(armed) = true after SetFlag(false)")
	}
	if !s.HasFlag("armed") {
		t.Error("HasFlag(armed) = false for explicitly false flag")
	}

	s.ClearFlag("armed")
	if s.HasFlag("armed") {
		t.Error("HasFlag(armed) = true after ClearFlag")
	}
}

func TestFlagStore_FlagsCopy(t *testing.T) {
	s := NewFlagStore()
	s.SetFlag("a", true)

	snapshot := s.Flags()
	snapshot["a"] = false
	snapshot["b"] = true

	if !s.GetFlag("a") {
		t.Error("mutating the snapshot changed the store")
	}
	if s.HasFlag("b") {
		t.Error("mutating the snapshot added a flag to the store")
	}
}

func TestFlagStore_Reset(t *testing.T) {
	s := NewFlagStore()
	s.SetFlag("a", true)
	s.SetFlag("b", false)

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("Len() = %d after Reset(), want 0", s.Len())
	}
}

func TestFlagStore_Concurrent(t *testing.T) {
	s := NewFlagStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.SetFlag("shared", n%2 == 0)
			_ = s.GetFlag("shared")
			_ = s.Flags()
		}(i)
	}
	wg.Wait()
}
