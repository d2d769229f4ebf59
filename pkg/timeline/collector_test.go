// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package timeline_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	timelinev1 "github.com/antimetal/timeline-agent/pkg/api/timeline/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
	"github.com/antimetal/timeline-agent/pkg/timeline"
	"github.com/antimetal/timeline-agent/pkg/timeline/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entity(entityType, id string) *timelinev1.TimelineEntity {
	return &timelinev1.TimelineEntity{
		EntityType:    entityType,
		EntityId:      id,
		CreatedTimeMs: time.Now().UnixMilli(),
		Info:          map[string]string{"source": "test"},
	}
}

func TestAppCollector_Lifecycle(t *testing.T) {
	c := timeline.NewAppCollector("app-1", testr.New(t))
	assert.Equal(t, "app-1", c.AppID())
	assert.Equal(t, timeline.CollectorStateUninitialized, c.State())

	// Start before Init is an error.
	require.Error(t, c.Start())

	require.NoError(t, c.Init(timeline.CollectionConfig{Store: newTestStore(t)}))
	assert.Equal(t, timeline.CollectorStateInitialized, c.State())

	// Double init is an error.
	require.Error(t, c.Init(timeline.CollectionConfig{Store: newTestStore(t)}))

	require.NoError(t, c.Start())
	assert.Equal(t, timeline.CollectorStateStarted, c.State())
	require.Error(t, c.Start())

	require.NoError(t, c.Stop())
	assert.Equal(t, timeline.CollectorStateStopped, c.State())

	// Stopped is terminal: no restart, and Stop stays idempotent.
	require.Error(t, c.Start())
	require.NoError(t, c.Stop())
}

func TestAppCollector_InitRequiresStore(t *testing.T) {
	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.Error(t, c.Init(timeline.CollectionConfig{}))
}

func TestAppCollector_PutBeforeStart(t *testing.T) {
	c := timeline.NewAppCollector("app-1", testr.New(t))
	err := c.Put(entity("job", "job-1"))
	require.ErrorIs(t, err, timeline.ErrNotStarted)

	require.NoError(t, c.Init(timeline.CollectionConfig{Store: newTestStore(t)}))
	err = c.Put(entity("job", "job-1"))
	require.ErrorIs(t, err, timeline.ErrNotStarted)
}

func TestAppCollector_PutAfterStop(t *testing.T) {
	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.NoError(t, c.Init(timeline.CollectionConfig{Store: newTestStore(t)}))
	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())

	err := c.Put(entity("job", "job-1"))
	require.ErrorIs(t, err, timeline.ErrNotStarted)
}

func TestAppCollector_PutFlushesToStore(t *testing.T) {
	st := newTestStore(t)
	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.NoError(t, c.Init(timeline.CollectionConfig{Store: st}))
	require.NoError(t, c.Start())

	require.NoError(t, c.Put(entity("job", "job-1"), entity("job", "job-2")))
	require.NoError(t, c.Put(entity("task", "task-1")))

	// Stop drains the buffer before returning.
	require.NoError(t, c.Stop())

	all, err := st.Query("app-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	jobs, err := st.Query("app-1", "job")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestAppCollector_ConcurrentPutStopLosesNothing(t *testing.T) {
	st := newTestStore(t)
	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.NoError(t, c.Init(timeline.CollectionConfig{Store: st}))
	require.NoError(t, c.Start())

	var accepted atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			err := c.Put(entity("job", fmt.Sprintf("job-%d", i)))
			if errors.Is(err, timeline.ErrNotStarted) {
				return
			}
			if err == nil {
				accepted.Add(1)
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Stop())
	<-done

	// Every Put that reported success made it to the store.
	got, err := st.Query("app-1", "")
	require.NoError(t, err)
	assert.Len(t, got, int(accepted.Load()))
}

func TestAppCollector_EntitiesFilter(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Put("app-1", entity("job", "job-1"), entity("task", "task-1")))

	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.NoError(t, c.Init(timeline.CollectionConfig{Store: st}))

	all, err := c.Entities("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jobs, err := c.Entities("job")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].GetEntityId())
}

func TestAppCollector_PutCopiesEntities(t *testing.T) {
	st := newTestStore(t)
	c := timeline.NewAppCollector("app-1", testr.New(t))
	require.NoError(t, c.Init(timeline.CollectionConfig{Store: st}))
	require.NoError(t, c.Start())

	e := entity("job", "job-1")
	require.NoError(t, c.Put(e))
	// Mutating the caller's entity after Put must not affect what is stored.
	e.Info["source"] = "mutated"
	require.NoError(t, c.Stop())

	stored, err := st.Get("app-1", "job", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "test", stored.Info["source"])
}
