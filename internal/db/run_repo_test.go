package db

import (
	"context"
	"testing"
	"time"
)

func TestRunRepoCreateFillsDefaults(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	run := &Run{Profile: "default", Command: "bash -l", Cols: 120, Rows: 30}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if run.ID == "" {
		t.Fatal("Create() did not set run ID")
	}
	if run.StartedAt.IsZero() {
		t.Fatal("Create() did not set StartedAt")
	}
	if !run.Running {
		t.Fatal("Create() did not mark run as running")
	}
}

func TestRunRepoLifecycle(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	run := &Run{
		ID:        "run-1",
		Profile:   "default",
		Command:   "bash -l",
		Cols:      120,
		Rows:      30,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Profile != "default" || got.Command != "bash -l" || got.Cols != 120 || got.Rows != 30 {
		t.Fatalf("Get() got = %#v", got)
	}
	if !got.Running || !got.EndedAt.IsZero() {
		t.Fatalf("live run got = %#v", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}

	if err := repo.Finish(ctx, "run-1", 2, "final screen"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	finished, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() after finish error = %v", err)
	}
	if finished.Running {
		t.Fatal("finished run still marked running")
	}
	if finished.ExitCode != 2 {
		t.Fatalf("ExitCode = %d, want 2", finished.ExitCode)
	}
	if finished.EndedAt.IsZero() {
		t.Fatal("EndedAt not set")
	}
	if finished.LastOutput != "final screen" {
		t.Fatalf("LastOutput = %q", finished.LastOutput)
	}

	if err := repo.Finish(ctx, "missing", 0, ""); err == nil {
		t.Fatal("Finish(missing) error = nil, want error")
	}
}

func TestRunRepoGetMissing(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())

	got, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get(missing) = %#v, want nil", got)
	}
}

func TestRunRepoLatestAndList(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := &Run{ID: id, Profile: "default", Command: "bash", Cols: 80, Rows: 24, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest == nil || latest.ID != "run-c" {
		t.Fatalf("Latest() = %#v, want run-c", latest)
	}

	list, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "run-c" || list[1].ID != "run-b" {
		t.Fatalf("List(2) got ids = %v", runIDs(list))
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) len = %d, want 3", len(all))
	}
}

func TestRunRepoLatestEmpty(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())

	latest, err := repo.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest != nil {
		t.Fatalf("Latest() on empty history = %#v, want nil", latest)
	}
}

func TestRunRepoPruneKeepsLiveRuns(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, run := range []*Run{
		{ID: "old-finished", Profile: "p", Command: "c", Cols: 80, Rows: 24, StartedAt: old},
		{ID: "old-live", Profile: "p", Command: "c", Cols: 80, Rows: 24, StartedAt: old},
		{ID: "new-finished", Profile: "p", Command: "c", Cols: 80, Rows: 24, StartedAt: recent},
	} {
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s) error = %v", run.ID, err)
		}
	}
	if err := repo.Finish(ctx, "old-finished", 0, ""); err != nil {
		t.Fatalf("Finish(old-finished) error = %v", err)
	}
	if err := repo.Finish(ctx, "new-finished", 0, ""); err != nil {
		t.Fatalf("Finish(new-finished) error = %v", err)
	}

	pruned, err := repo.PruneOlderThan(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}
	if pruned != 1 {
		t.Fatalf("PruneOlderThan() = %d, want 1", pruned)
	}

	for id, want := range map[string]bool{"old-finished": false, "old-live": true, "new-finished": true} {
		got, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if (got != nil) != want {
			t.Errorf("after prune, Get(%s) = %#v, want present=%v", id, got, want)
		}
	}
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
