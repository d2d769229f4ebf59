// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package store

import (
	"fmt"
	"sync"
	"testing"

	timelinev1 "github.com/antimetal/timeline-agent/pkg/api/timeline/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entity(entityType, id string) *timelinev1.TimelineEntity {
	return &timelinev1.TimelineEntity{
		EntityType:    entityType,
		EntityId:      id,
		CreatedTimeMs: 1700000000000,
		Info:          map[string]string{"k": "v"},
	}
}

func TestStore_PutGet(t *testing.T) {
	s := newStore(t)

	want := entity("job", "job-1")
	if err := s.Put("app-1", want); err != nil {
		t.Fatalf("failed to put entity: %v", err)
	}

	got, err := s.Get("app-1", "job", "job-1")
	if err != nil {
		t.Fatalf("failed to get entity: %v", err)
	}
	if got.GetEntityId() != want.GetEntityId() {
		t.Fatalf("expected entity id %q, got %q", want.GetEntityId(), got.GetEntityId())
	}
	if got.GetCreatedTimeMs() != want.GetCreatedTimeMs() {
		t.Fatalf("expected created time %d, got %d", want.GetCreatedTimeMs(), got.GetCreatedTimeMs())
	}
	if got.GetInfo()["k"] != "v" {
		t.Fatalf("expected info to round trip, got %v", got.GetInfo())
	}

	_, err = s.Get("app-1", "job", "notexist")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	s := newStore(t)

	first := entity("job", "job-1")
	if err := s.Put("app-1", first); err != nil {
		t.Fatalf("failed to put entity: %v", err)
	}
	second := entity("job", "job-1")
	second.CreatedTimeMs = 42
	if err := s.Put("app-1", second); err != nil {
		t.Fatalf("failed to replace entity: %v", err)
	}

	got, err := s.Get("app-1", "job", "job-1")
	if err != nil {
		t.Fatalf("failed to get entity: %v", err)
	}
	if got.GetCreatedTimeMs() != 42 {
		t.Fatalf("expected replacement to win, got created time %d", got.GetCreatedTimeMs())
	}
}

func TestStore_PutValidation(t *testing.T) {
	s := newStore(t)

	if err := s.Put("", entity("job", "job-1")); err == nil {
		t.Fatal("expected error for empty application id")
	}
	if err := s.Put("app/1", entity("job", "job-1")); err == nil {
		t.Fatal("expected error for application id containing '/'")
	}
	if err := s.Put("app-1", entity("", "job-1")); err == nil {
		t.Fatal("expected error for empty entity type")
	}
	if err := s.Put("app-1", entity("job", "")); err == nil {
		t.Fatal("expected error for empty entity id")
	}
}

func TestStore_Query(t *testing.T) {
	s := newStore(t)

	if err := s.Put("app-1",
		entity("job", "job-1"),
		entity("job", "job-2"),
		entity("task", "task-1"),
	); err != nil {
		t.Fatalf("failed to put entities: %v", err)
	}

	all, err := s.Query("app-1", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(all))
	}

	jobs, err := s.Query("app-1", "job")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 job entities, got %d", len(jobs))
	}

	none, err := s.Query("notexist", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no entities, got %d", len(none))
	}
}

func TestStore_AppIsolation(t *testing.T) {
	s := newStore(t)

	// "app" must not see keys belonging to "app2".
	if err := s.Put("app", entity("job", "job-1")); err != nil {
		t.Fatalf("failed to put entity: %v", err)
	}
	if err := s.Put("app2", entity("job", "job-2")); err != nil {
		t.Fatalf("failed to put entity: %v", err)
	}

	got, err := s.Query("app", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(got) != 1 || got[0].GetEntityId() != "job-1" {
		t.Fatalf("expected only job-1, got %v", got)
	}
}

func TestStore_DeleteApp(t *testing.T) {
	s := newStore(t)

	if err := s.Put("app-1", entity("job", "job-1"), entity("task", "task-1")); err != nil {
		t.Fatalf("failed to put entities: %v", err)
	}
	if err := s.Put("app-2", entity("job", "job-2")); err != nil {
		t.Fatalf("failed to put entity: %v", err)
	}

	if err := s.DeleteApp("app-1"); err != nil {
		t.Fatalf("failed to delete app: %v", err)
	}

	got, err := s.Query("app-1", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected app-1 to be empty, got %d entities", len(got))
	}

	kept, err := s.Query("app-2", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("expected app-2 to be untouched, got %d entities", len(kept))
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			appID := fmt.Sprintf("app-%d", i%2)
			for j := 0; j < 20; j++ {
				id := fmt.Sprintf("job-%d-%d", i, j)
				if err := s.Put(appID, entity("job", id)); err != nil {
					t.Errorf("failed to put entity %s: %v", id, err)
				}
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Query("app-0", "")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if len(got) != 80 {
		t.Fatalf("expected 80 entities in app-0, got %d", len(got))
	}
}
