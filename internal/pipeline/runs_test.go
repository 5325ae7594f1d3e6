package pipeline

import (
	"sort"
	"testing"
	"time"
)

func TestRun_StateTransitions(t *testing.T) {
	run := NewRun([]string{"ABC"})
	if run.Status != RunQueued {
		t.Fatalf("new run status = %s", run.Status)
	}

	for _, status := range []RunStatus{RunRunning, RunCompleted} {
		before := run.UpdatedAt
		time.Sleep(time.Millisecond)
		run.SetStatus(status)
		if run.Status != status {
			t.Errorf("expected status %q, got %q", status, run.Status)
		}
		if !run.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", status)
		}
	}
}

func TestRun_FailRecordsReason(t *testing.T) {
	run := NewRun(nil)
	run.Fail("queue_full")
	snap := run.Snapshot()
	if snap.Status != RunFailed || snap.Error != "queue_full" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Tickers == nil {
		t.Error("tickers should serialize as an empty list")
	}
}

func TestRun_SnapshotKeepsFirstReportedOrder(t *testing.T) {
	run := NewRun(nil)
	run.SetCompany(CompanyOutcome{Ticker: "ZZZ", Status: CompanyPending})
	run.SetCompany(CompanyOutcome{Ticker: "AAA", Status: CompanyPending})
	run.SetCompany(CompanyOutcome{Ticker: "ZZZ", Status: CompanyPersisted, Artifact: "x"})

	snap := run.Snapshot()
	if len(snap.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(snap.Companies))
	}
	if snap.Companies[0].Ticker != "ZZZ" || snap.Companies[0].Status != CompanyPersisted {
		t.Errorf("first company = %+v", snap.Companies[0])
	}
	if snap.Counts[CompanyPersisted] != 1 || snap.Counts[CompanyPending] != 1 {
		t.Errorf("counts = %v", snap.Counts)
	}

	// The snapshot is a copy.
	snap.Companies[0].Status = CompanyFailed
	if o, _ := run.Company("ZZZ"); o.Status != CompanyPersisted {
		t.Error("mutating a snapshot changed the run")
	}
}

func TestRun_CancelQueued(t *testing.T) {
	run := NewRun(nil)
	run.Cancel()
	if run.Snapshot().Status != RunCancelled {
		t.Errorf("queued run should be cancelled immediately")
	}
}

func TestRun_BeginLosesToEarlierCancel(t *testing.T) {
	run := NewRun(nil)
	run.Cancel()
	called := false
	if run.begin(func() { called = true }) {
		t.Fatal("begin should refuse a cancelled run")
	}
	if st := run.Snapshot().Status; st != RunCancelled {
		t.Errorf("status = %s, want cancelled", st)
	}
	run.Cancel()
	if called {
		t.Error("a refused cancel func must not be stored")
	}
}

func TestRun_CancelAfterBegin(t *testing.T) {
	run := NewRun(nil)
	called := false
	if !run.begin(func() { called = true }) {
		t.Fatal("begin refused a queued run")
	}
	if st := run.Snapshot().Status; st != RunRunning {
		t.Errorf("status = %s, want running", st)
	}
	run.Cancel()
	if !called {
		t.Error("Cancel did not reach the running run")
	}
}

func TestRunStore_CleanupKeepsActiveRuns(t *testing.T) {
	store := NewRunStore(10 * time.Millisecond)
	done := NewRun(nil)
	done.SetStatus(RunCompleted)
	active := NewRun(nil)
	active.SetStatus(RunRunning)
	store.Put(done)
	store.Put(active)

	time.Sleep(25 * time.Millisecond)
	store.Cleanup()

	if store.Get(done.ID) != nil {
		t.Error("expired finished run should be removed")
	}
	if store.Get(active.ID) == nil {
		t.Error("running run must survive cleanup")
	}
}

func TestNewRunID_Sortable(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewRunID()
	}
	if len(ids[0]) != 26 {
		t.Fatalf("expected 26-char ULID, got %q", ids[0])
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("run IDs should be monotonically increasing")
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
