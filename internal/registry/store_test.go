package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/peripheral-core/internal/alert"
	"github.com/nerrad567/peripheral-core/internal/infrastructure/database"
	"github.com/nerrad567/peripheral-core/internal/peripheral"
	_ "github.com/nerrad567/peripheral-core/migrations"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// setupTestStore opens a migrated database in a temp dir.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "registry.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	s := NewStore(db.DB)
	s.SetClock(func() time.Time { return testNow })
	return s
}

func testPeripheral(name, pc, vid, pid string) *peripheral.Peripheral {
	return &peripheral.Peripheral{
		Name:       name,
		UniqueID:   "VID_" + vid + "_PID_" + pid + "_INST_" + pc,
		VendorID:   vid,
		ProductID:  pid,
		DeviceType: "Mouse",
		AssignedPC: pc,
		LabScope:   "lab-a",
		Status:     peripheral.StatusConnected,
	}
}

func mustCreate(t *testing.T, s *Store, p *peripheral.Peripheral) {
	t.Helper()
	if err := s.CreatePeripheral(context.Background(), p); err != nil {
		t.Fatalf("CreatePeripheral() error = %v", err)
	}
}

func TestCreateAndGetPeripheral(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse 1", "PC-01", "046d", "c077")
	mustCreate(t, s, p)
	if p.ID == 0 {
		t.Fatal("CreatePeripheral() did not set ID")
	}

	got, err := s.GetPeripheral(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.VendorID != "046D" || got.ProductID != "C077" {
		t.Errorf("ids = %s/%s, want upper-cased 046D/C077", got.VendorID, got.ProductID)
	}
	if got.Status != peripheral.StatusConnected {
		t.Errorf("Status = %q, want connected", got.Status)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
	}

	if _, err := s.GetPeripheral(ctx, 999); !errors.Is(err, peripheral.ErrPeripheralNotFound) {
		t.Errorf("GetPeripheral(999) error = %v, want ErrPeripheralNotFound", err)
	}
}

func TestCreatePeripheral_UnknownModelStoredEmpty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Two unknown-model units on one PC do not collide.
	for _, name := range []string{"Old Keyboard", "Old Mouse"} {
		p := testPeripheral(name, "PC-01", "UNKNOWN", "UNKNOWN")
		p.Status = ""
		mustCreate(t, s, p)

		got, err := s.GetPeripheral(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetPeripheral() error = %v", err)
		}
		if got.VendorID != "" || got.ProductID != "" {
			t.Errorf("ids = %q/%q, want empty", got.VendorID, got.ProductID)
		}
		if got.Status != "" {
			t.Errorf("Status = %q, want none", got.Status)
		}
	}
}

func TestCreatePeripheral_DuplicateModel(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, testPeripheral("Mouse 1", "PC-01", "046D", "C077"))

	err := s.CreatePeripheral(ctx, testPeripheral("Mouse 2", "PC-01", "046D", "C077"))
	if !errors.Is(err, peripheral.ErrDuplicateModel) {
		t.Errorf("same pc: error = %v, want ErrDuplicateModel", err)
	}

	if err := s.CreatePeripheral(ctx, testPeripheral("Mouse 3", "PC-02", "046D", "C077")); err != nil {
		t.Errorf("other pc: CreatePeripheral() error = %v", err)
	}
}

func TestCreatePeripheral_Invalid(t *testing.T) {
	s := setupTestStore(t)

	tests := []struct {
		name string
		p    *peripheral.Peripheral
	}{
		{"no name", &peripheral.Peripheral{AssignedPC: "PC-01", LabScope: "lab-a"}},
		{"no pc", &peripheral.Peripheral{Name: "x", LabScope: "lab-a"}},
		{"half model", &peripheral.Peripheral{Name: "x", AssignedPC: "PC-01", LabScope: "lab-a", VendorID: "046D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CreatePeripheral(context.Background(), tt.p); !errors.Is(err, peripheral.ErrInvalidPeripheral) {
				t.Errorf("CreatePeripheral() error = %v, want ErrInvalidPeripheral", err)
			}
		})
	}
}

func TestListForPC(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, testPeripheral("Mouse", "PC-01", "046D", "C077"))
	kb := testPeripheral("Keyboard", "PC-01", "413C", "2113")
	kb.LabScope = "lab-b"
	mustCreate(t, s, kb)
	mustCreate(t, s, testPeripheral("Mouse", "PC-02", "046D", "C077"))

	tests := []struct {
		lab  string
		want int
	}{
		{"lab-a", 1},
		{"lab-b", 1},
		{"", 2},
		{"lab-c", 0},
	}
	for _, tt := range tests {
		got, err := s.ListForPC(ctx, tt.lab, "PC-01")
		if err != nil {
			t.Fatalf("ListForPC(%q) error = %v", tt.lab, err)
		}
		if len(got) != tt.want {
			t.Errorf("ListForPC(%q) = %d peripherals, want %d", tt.lab, len(got), tt.want)
		}
	}

	byLab, err := s.ListByLab(ctx, "lab-a")
	if err != nil {
		t.Fatalf("ListByLab() error = %v", err)
	}
	if len(byLab) != 2 || byLab[0].AssignedPC != "PC-01" {
		t.Errorf("ListByLab() = %+v", byLab)
	}
}

func TestUpdateDetails_LeavesStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)

	p.Name = "Front Desk Mouse"
	p.Remarks = "left-handed"
	p.Status = peripheral.StatusFaulty
	if err := s.UpdateDetails(ctx, p); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}

	got, err := s.GetPeripheral(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.Name != "Front Desk Mouse" || got.Remarks != "left-handed" {
		t.Errorf("details not updated: %+v", got)
	}
	if got.Status != peripheral.StatusConnected {
		t.Errorf("Status = %q, UpdateDetails must not move status", got.Status)
	}

	missing := testPeripheral("Ghost", "PC-01", "", "")
	missing.ID = 999
	if err := s.UpdateDetails(ctx, missing); !errors.Is(err, peripheral.ErrPeripheralNotFound) {
		t.Errorf("UpdateDetails(999) error = %v, want ErrPeripheralNotFound", err)
	}
}

func TestSetStatus_WritesHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)

	results, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
		Status: peripheral.StatusUnplugged, Reason: "cable pulled", Actor: "tech", Enforce: true,
	})
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if len(results) != 1 || !results[0].Changed || results[0].Previous != peripheral.StatusConnected {
		t.Fatalf("results = %+v", results)
	}

	got, err := s.GetPeripheral(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.Status != peripheral.StatusUnplugged || got.StatusUpdatedBy != "tech" || got.StatusReason != "cable pulled" {
		t.Errorf("peripheral = %+v", got)
	}
	if got.StatusUpdatedAt == nil || !got.StatusUpdatedAt.Equal(testNow) {
		t.Errorf("StatusUpdatedAt = %v, want %v", got.StatusUpdatedAt, testNow)
	}

	history, err := s.StatusHistory(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("StatusHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d entries, want 1", len(history))
	}
	h := history[0]
	if h.OldStatus != peripheral.StatusConnected || h.NewStatus != peripheral.StatusUnplugged || h.ChangedBy != "tech" {
		t.Errorf("history entry = %+v", h)
	}
}

func TestSetStatus_NoOpWritesNothing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)

	results, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
		Status: peripheral.StatusConnected, Enforce: true,
	})
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if len(results) != 1 || results[0].Changed {
		t.Errorf("results = %+v, want one unchanged", results)
	}
	if history, _ := s.StatusHistory(ctx, p.ID, 0); len(history) != 0 { //nolint:errcheck // Empty on error
		t.Errorf("no-op wrote %d history entries", len(history))
	}
}

func TestSetStatus_InvalidTransitionLeavesRow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	p.Status = peripheral.StatusReplaced
	mustCreate(t, s, p)

	_, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
		Status: peripheral.StatusFaulty, Enforce: true,
	})
	var te *peripheral.InvalidTransitionError
	if !errors.As(err, &te) || te.From != peripheral.StatusReplaced || te.To != peripheral.StatusFaulty {
		t.Fatalf("SetStatus() error = %v, want replaced -> faulty transition error", err)
	}

	got, err := s.GetPeripheral(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.Status != peripheral.StatusReplaced {
		t.Errorf("Status = %q, want replaced", got.Status)
	}
}

func TestSetStatus_AllOrNothing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := testPeripheral("Mouse A", "PC-01", "046D", "C077")
	b := testPeripheral("Mouse B", "PC-02", "046D", "C077")
	b.Status = peripheral.StatusReplaced
	mustCreate(t, s, a)
	mustCreate(t, s, b)

	// Selecting the model across every PC hits both; b cannot be unplugged.
	_, err := s.SetStatus(ctx, peripheral.ByModel("", "046d", "c077"), peripheral.StatusChange{
		Status: peripheral.StatusUnplugged, Enforce: true,
	})
	if !errors.Is(err, peripheral.ErrInvalidTransition) {
		t.Fatalf("SetStatus() error = %v, want ErrInvalidTransition", err)
	}

	got, err := s.GetPeripheral(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.Status != peripheral.StatusConnected {
		t.Errorf("first unit status = %q, a failed batch must write nothing", got.Status)
	}
	if history, _ := s.StatusHistory(ctx, a.ID, 0); len(history) != 0 { //nolint:errcheck // Empty on error
		t.Errorf("failed batch wrote %d history entries", len(history))
	}
}

func TestSetStatus_Selectors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)
	change := peripheral.StatusChange{Status: peripheral.StatusUnplugged}

	tests := []struct {
		name string
		sel  peripheral.Selector
		want int
	}{
		{"identity", peripheral.ByIdentity("PC-01", p.UniqueID), 1},
		{"identity other pc", peripheral.ByIdentity("PC-02", p.UniqueID), 0},
		{"model", peripheral.ByModel("PC-01", "046D", "C077"), 1},
		{"model other pc", peripheral.ByModel("PC-02", "046D", "C077"), 0},
		{"identity in lab", peripheral.ByIdentity("PC-01", p.UniqueID).InLab("lab-a"), 1},
		{"identity other lab", peripheral.ByIdentity("PC-01", p.UniqueID).InLab("lab-b"), 0},
		{"model other lab", peripheral.ByModel("PC-01", "046D", "C077").InLab("lab-b"), 0},
		{"unknown model", peripheral.ByModel("PC-01", "UNKNOWN", "UNKNOWN"), 0},
		{"missing id", peripheral.ByID(999), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.SetStatus(ctx, tt.sel, change)
			if err != nil {
				t.Fatalf("SetStatus() error = %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("SetStatus() matched %d, want %d", len(results), tt.want)
			}
		})
	}
}

func TestSetStatus_IdentityScopedToLab(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// The same PC tag and device registered in two labs.
	a := testPeripheral("Mouse", "PC-01", "046D", "C077")
	b := testPeripheral("Mouse", "PC-01", "046D", "C077")
	b.LabScope = "lab-b"
	mustCreate(t, s, a)
	mustCreate(t, s, b)

	results, err := s.SetStatus(ctx, peripheral.ByIdentity("PC-01", a.UniqueID).InLab("lab-b"),
		peripheral.StatusChange{Status: peripheral.StatusUnplugged})
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if len(results) != 1 || results[0].Peripheral.ID != b.ID {
		t.Fatalf("SetStatus() = %+v, want only the lab-b unit", results)
	}

	got, err := s.GetPeripheral(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetPeripheral() error = %v", err)
	}
	if got.Status != peripheral.StatusConnected {
		t.Errorf("lab-a unit status = %q, want connected", got.Status)
	}
}

func TestSetStatus_ConcurrentTransitions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
				Status: peripheral.StatusFaulty, Actor: "tech", Enforce: true,
			})
			if err != nil {
				t.Errorf("SetStatus() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range results {
				if r.Changed {
					changed++
				}
			}
		}()
	}
	wg.Wait()

	if changed != 1 {
		t.Errorf("%d workers reported a change, want exactly 1", changed)
	}
	history, err := s.StatusHistory(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("StatusHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history = %d entries, want 1", len(history))
	}
}

func TestStatusHistory_OrderAndLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)
	other := testPeripheral("Keyboard", "PC-01", "413C", "2113")
	other.LabScope = "lab-b"
	mustCreate(t, s, other)

	seq := []peripheral.Status{
		peripheral.StatusUnplugged, peripheral.StatusConnected, peripheral.StatusFaulty,
	}
	for i, st := range seq {
		if _, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{
			Status: st, At: testNow.Add(time.Duration(i) * time.Minute), Enforce: true,
		}); err != nil {
			t.Fatalf("SetStatus(%s) error = %v", st, err)
		}
	}
	if _, err := s.SetStatus(ctx, peripheral.ByID(other.ID), peripheral.StatusChange{
		Status: peripheral.StatusUnplugged, At: testNow.Add(time.Hour),
	}); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	history, err := s.StatusHistory(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("StatusHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].NewStatus != peripheral.StatusFaulty || history[1].NewStatus != peripheral.StatusConnected {
		t.Errorf("StatusHistory(limit 2) = %+v", history)
	}

	recent, err := s.RecentStatusHistory(ctx, "lab-a", 0)
	if err != nil {
		t.Fatalf("RecentStatusHistory() error = %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("RecentStatusHistory(lab-a) = %d entries, want 3", len(recent))
	}
}

func TestDeletePeripheral(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := testPeripheral("Mouse", "PC-01", "046D", "C077")
	mustCreate(t, s, p)
	if _, err := s.SetStatus(ctx, peripheral.ByID(p.ID), peripheral.StatusChange{Status: peripheral.StatusUnplugged}); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	if err := s.DeletePeripheral(ctx, p.ID); err != nil {
		t.Fatalf("DeletePeripheral() error = %v", err)
	}
	if _, err := s.GetPeripheral(ctx, p.ID); !errors.Is(err, peripheral.ErrPeripheralNotFound) {
		t.Errorf("GetPeripheral() after delete error = %v", err)
	}
	if history, _ := s.StatusHistory(ctx, p.ID, 0); len(history) != 0 { //nolint:errcheck // Empty on error
		t.Errorf("history survived delete: %d entries", len(history))
	}
	if err := s.DeletePeripheral(ctx, p.ID); !errors.Is(err, peripheral.ErrPeripheralNotFound) {
		t.Errorf("second DeletePeripheral() error = %v, want ErrPeripheralNotFound", err)
	}

	// The model slot is free again.
	mustCreate(t, s, testPeripheral("Mouse", "PC-01", "046D", "C077"))
}

func TestEvents(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	const uid = "VID_046D_PID_C077_INST_1"

	latest, err := s.LatestEvent(ctx, uid)
	if err != nil || latest != nil {
		t.Fatalf("LatestEvent() on empty log = %+v, %v", latest, err)
	}

	types := []alert.EventType{alert.EventConnected, alert.EventDisconnected, alert.EventConnected}
	for i, typ := range types {
		ev := &alert.Event{
			UniqueID: uid, Type: typ, VendorID: "046D", ProductID: "C077",
			LabScope: "lab-a", PCTag: "PC-01", Timestamp: testNow.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
		if ev.ID == 0 {
			t.Fatal("AppendEvent() did not set ID")
		}
	}
	// Same second as the last event; insertion order breaks the tie.
	if err := s.AppendEvent(ctx, &alert.Event{
		UniqueID: uid, Type: alert.EventDisconnected, PCTag: "PC-01", LabScope: "lab-a",
		Timestamp: testNow.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	since, err := s.EventsSince(ctx, uid, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("EventsSince() error = %v", err)
	}
	if len(since) != 3 || since[0].Type != alert.EventDisconnected || since[2].Type != alert.EventDisconnected {
		t.Errorf("EventsSince() = %+v", since)
	}

	latest, err = s.LatestEvent(ctx, uid)
	if err != nil {
		t.Fatalf("LatestEvent() error = %v", err)
	}
	if latest == nil || latest.Type != alert.EventDisconnected || latest.VendorID != "" {
		t.Errorf("LatestEvent() = %+v, want the id-less disconnect", latest)
	}

	recent, err := s.RecentEvents(ctx, "", "PC-01", 2)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("RecentEvents() = %d, want 2", len(recent))
	}

	n, err := s.PruneEvents(ctx, testNow.Add(90*time.Second))
	if err != nil {
		t.Fatalf("PruneEvents() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PruneEvents() removed %d, want 2", n)
	}
}

func TestAlerts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, typ := range []alert.Type{alert.TypeFaulty, alert.TypeMissing} {
		a := &alert.Alert{PeripheralKey: "VID_046D_PID_C077_INST_1", Type: typ, Scope: "lab-a", PCTag: "PC-01"}
		if err := s.CreateAlert(ctx, a); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}
	if err := s.CreateAlert(ctx, &alert.Alert{PeripheralKey: "x", Type: alert.TypeReplaced, Scope: "lab-b"}); err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	active, err := s.ListAlerts(ctx, "lab-a", false, 0)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListAlerts(active) = %d, want 2", len(active))
	}

	found, err := s.SetAlertDeleted(ctx, active[0].ID, true)
	if err != nil || !found {
		t.Fatalf("SetAlertDeleted() = %v, %v", found, err)
	}
	if n, _ := s.CountActiveAlerts(ctx, "lab-a"); n != 1 { //nolint:errcheck // Zero on error
		t.Errorf("CountActiveAlerts() = %d, want 1", n)
	}
	deleted, err := s.ListAlerts(ctx, "lab-a", true, 0)
	if err != nil {
		t.Fatalf("ListAlerts(deleted) error = %v", err)
	}
	if len(deleted) != 1 || !deleted[0].Deleted {
		t.Errorf("ListAlerts(deleted) = %+v", deleted)
	}

	if found, err := s.SetAlertDeleted(ctx, 999, true); err != nil || found {
		t.Errorf("SetAlertDeleted(999) = %v, %v, want not found", found, err)
	}
}

func TestSessions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.ActivePC(ctx, "alice"); err != nil || ok {
		t.Fatalf("ActivePC() before bind = %v, %v", ok, err)
	}

	if err := s.BindSession(ctx, "alice", "PC-01", "lab-a"); err != nil {
		t.Fatalf("BindSession() error = %v", err)
	}
	if err := s.BindSession(ctx, "alice", "PC-03", "lab-a"); err != nil {
		t.Fatalf("BindSession() rebind error = %v", err)
	}
	pc, ok, err := s.ActivePC(ctx, "alice")
	if err != nil || !ok || pc != "PC-03" {
		t.Errorf("ActivePC() = %q, %v, %v, want PC-03", pc, ok, err)
	}

	if err := s.UnbindSession(ctx, "alice"); err != nil {
		t.Fatalf("UnbindSession() error = %v", err)
	}
	if _, ok, _ := s.ActivePC(ctx, "alice"); ok { //nolint:errcheck // ok is false on error
		t.Error("session still active after unbind")
	}

	if err := s.BindSession(ctx, "", "PC-01", ""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("BindSession(no principal) error = %v, want ErrInvalidSession", err)
	}
}
