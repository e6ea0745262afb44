package peripheral

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory StatusStore with the same all-or-nothing
// semantics as the SQLite store.
type memStore struct {
	mu          sync.Mutex
	peripherals map[int64]*Peripheral
	history     []StatusHistoryEntry

	setErr error
}

func newMemStore(ps ...Peripheral) *memStore {
	s := &memStore{peripherals: make(map[int64]*Peripheral)}
	for i := range ps {
		p := ps[i]
		s.peripherals[p.ID] = &p
	}
	return s
}

func (s *memStore) SetStatus(_ context.Context, sel Selector, change StatusChange) ([]StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return nil, s.setErr
	}

	var matched []*Peripheral
	for _, p := range s.peripherals {
		switch sel.Kind {
		case SelectByID:
			if p.ID == sel.ID {
				matched = append(matched, p)
			}
		case SelectByIdentity:
			if p.UniqueID == sel.UniqueID && (sel.PCTag == "" || p.AssignedPC == sel.PCTag) {
				matched = append(matched, p)
			}
		}
	}

	changes := make([]bool, len(matched))
	for i, p := range matched {
		changed, err := Plan(p.Status, change)
		if err != nil {
			return nil, err
		}
		changes[i] = changed
	}

	results := make([]StatusResult, 0, len(matched))
	for i, p := range matched {
		prev := p.Status
		if changes[i] {
			p.Status = change.Status
			p.StatusReason = change.Reason
			p.StatusUpdatedBy = change.Actor
			at := change.At
			p.StatusUpdatedAt = &at
			s.history = append(s.history, StatusHistoryEntry{
				PeripheralID: p.ID, OldStatus: prev, NewStatus: change.Status,
				ChangedBy: change.Actor, ChangedAt: change.At, Reason: change.Reason,
			})
		}
		results = append(results, StatusResult{Peripheral: *p, Previous: prev, Changed: changes[i]})
	}
	return results, nil
}

func (s *memStore) historyFor(id int64) []StatusHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StatusHistoryEntry
	for _, h := range s.history {
		if h.PeripheralID == id {
			out = append(out, h)
		}
	}
	return out
}

func TestTransitionTable(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusConnected: {StatusUnplugged: true, StatusFaulty: true, StatusReplaced: true},
		StatusUnplugged: {StatusConnected: true, StatusMissing: true, StatusFaulty: true},
		StatusMissing:   {StatusConnected: true, StatusReplaced: true},
		StatusFaulty:    {StatusConnected: true, StatusReplaced: true},
		StatusReplaced:  {StatusConnected: true},
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			if from == to {
				continue
			}
			want := allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	for _, to := range AllStatuses {
		if !CanTransition("", to) {
			t.Errorf("bootstrap to %s should be allowed", to)
		}
	}
	if CanTransition(StatusConnected, "broken") {
		t.Error("transition to an invalid status allowed")
	}
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"connected", "CONNECTED", " Unplugged ", "faulty"} {
		if _, err := ParseStatus(in); err != nil {
			t.Errorf("ParseStatus(%q) error = %v", in, err)
		}
	}
	if _, err := ParseStatus("exploded"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(exploded) error = %v, want ErrInvalidStatus", err)
	}
	if got := StatusFromStorage("MISSING"); got != StatusMissing {
		t.Errorf("StatusFromStorage(MISSING) = %q", got)
	}
	if got := StatusFromStorage("gone"); got != "" {
		t.Errorf("StatusFromStorage(gone) = %q, want empty", got)
	}
}

func TestStateMachine_Apply(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("every pair", func(t *testing.T) {
		for _, from := range AllStatuses {
			for _, to := range AllStatuses {
				store := newMemStore(Peripheral{ID: 1, Name: "Mouse", Status: from})
				sm := NewStateMachine(store)
				sm.SetClock(func() time.Time { return fixed })

				res, err := sm.Apply(context.Background(), 1, string(to), "test", "tech")
				switch {
				case from == to:
					if err != nil || res.Changed {
						t.Errorf("%s -> %s: no-op expected, got changed=%v err=%v", from, to, res.Changed, err)
					}
					if n := len(store.historyFor(1)); n != 0 {
						t.Errorf("%s -> %s: %d history rows for no-op", from, to, n)
					}
				case CanTransition(from, to):
					if err != nil || !res.Changed {
						t.Errorf("%s -> %s: changed=%v err=%v", from, to, res.Changed, err)
					}
					h := store.historyFor(1)
					if len(h) != 1 || h[0].OldStatus != from || h[0].NewStatus != to {
						t.Errorf("%s -> %s: history = %+v", from, to, h)
					}
				default:
					var ite *InvalidTransitionError
					if !errors.As(err, &ite) || !errors.Is(err, ErrInvalidTransition) {
						t.Errorf("%s -> %s: error = %v, want InvalidTransitionError", from, to, err)
					}
					if store.peripherals[1].Status != from {
						t.Errorf("%s -> %s: status changed to %s on rejection", from, to, store.peripherals[1].Status)
					}
					if n := len(store.historyFor(1)); n != 0 {
						t.Errorf("%s -> %s: %d history rows on rejection", from, to, n)
					}
				}
			}
		}
	})

	t.Run("bootstrap", func(t *testing.T) {
		store := newMemStore(Peripheral{ID: 7, Name: "Keyboard"})
		res, err := NewStateMachine(store).Apply(context.Background(), 7, "Replaced", "", "tech")
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if !res.Changed || res.Previous != "" || res.Peripheral.Status != StatusReplaced {
			t.Errorf("Apply() = %+v", res)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		store := newMemStore(Peripheral{ID: 1, Status: StatusConnected})
		if _, err := NewStateMachine(store).Apply(context.Background(), 1, "UNPLUGGED", "", ""); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if store.peripherals[1].Status != StatusUnplugged {
			t.Errorf("Status = %q", store.peripherals[1].Status)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		store := newMemStore(Peripheral{ID: 1, Status: StatusConnected})
		_, err := NewStateMachine(store).Apply(context.Background(), 1, "on fire", "", "")
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Apply() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := NewStateMachine(newMemStore()).Apply(context.Background(), 99, "connected", "", "")
		if !errors.Is(err, ErrPeripheralNotFound) {
			t.Errorf("Apply() error = %v, want ErrPeripheralNotFound", err)
		}
	})

	t.Run("store error", func(t *testing.T) {
		store := newMemStore(Peripheral{ID: 1})
		store.setErr = errors.New("disk full")
		_, err := NewStateMachine(store).Apply(context.Background(), 1, "connected", "", "")
		if !errors.Is(err, store.setErr) {
			t.Errorf("Apply() error = %v, want wrapped store error", err)
		}
	})
}

func TestStateMachine_ApplyAll(t *testing.T) {
	store := newMemStore(
		Peripheral{ID: 1, Status: StatusConnected},
		Peripheral{ID: 2, Status: StatusReplaced},
		Peripheral{ID: 3, Status: StatusFaulty},
	)
	sm := NewStateMachine(store)

	bulk, changed := sm.ApplyAll(context.Background(), []int64{1, 2, 3, 4}, "faulty", "bench test", "tech")

	if len(bulk.Succeeded) != 2 {
		t.Errorf("Succeeded = %v, want [1 3]", bulk.Succeeded)
	}
	if _, ok := bulk.Failed[2]; !ok {
		t.Error("replaced -> faulty should fail")
	}
	if !errors.Is(bulk.Failed[4], ErrPeripheralNotFound) {
		t.Errorf("Failed[4] = %v, want ErrPeripheralNotFound", bulk.Failed[4])
	}
	// Peripheral 3 was already faulty.
	if len(changed) != 1 || changed[0].Peripheral.ID != 1 {
		t.Errorf("changed = %+v, want only peripheral 1", changed)
	}
}

func TestPeripheral_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		p       Peripheral
		wantErr bool
		wantVID string
	}{
		{"valid", Peripheral{Name: "Mouse", AssignedPC: "PC-1", LabScope: "lab", VendorID: "046d", ProductID: "c077"}, false, "046D"},
		{"unknown ids cleared", Peripheral{Name: "Mouse", AssignedPC: "PC-1", LabScope: "lab", VendorID: "UNKNOWN", ProductID: "unknown"}, false, ""},
		{"missing name", Peripheral{AssignedPC: "PC-1", LabScope: "lab"}, true, ""},
		{"missing pc", Peripheral{Name: "Mouse", LabScope: "lab"}, true, ""},
		{"missing lab", Peripheral{Name: "Mouse", AssignedPC: "PC-1"}, true, ""},
		{"half known model", Peripheral{Name: "Mouse", AssignedPC: "PC-1", LabScope: "lab", VendorID: "046D"}, true, ""},
		{"bad hex", Peripheral{Name: "Mouse", AssignedPC: "PC-1", LabScope: "lab", VendorID: "XYZW", ProductID: "C077"}, true, ""},
		{"bad status", Peripheral{Name: "Mouse", AssignedPC: "PC-1", LabScope: "lab", Status: "gone"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			err := p.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.VendorID != tt.wantVID {
				t.Errorf("VendorID = %q, want %q", p.VendorID, tt.wantVID)
			}
		})
	}
}
