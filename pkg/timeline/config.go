// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package timeline

import (
	"time"

	"github.com/antimetal/timeline-agent/pkg/timeline/store"
)

const (
	DefaultBufferSize   = 256
	DefaultFlushTimeout = 5 * time.Second
)

// CollectionConfig is handed to every collector when the manager initializes
// it. The Store is shared by all collectors on the node; each collector
// writes under its own application keyspace.
type CollectionConfig struct {
	// Store receives the entities ingested by collectors. Required.
	Store *store.Store

	// BufferSize bounds the number of pending ingest batches per collector.
	// Put fails with ErrBufferFull once the buffer is full.
	BufferSize int

	// FlushTimeout bounds how long Stop waits for a collector to drain its
	// pending writes.
	FlushTimeout time.Duration
}

func (c *CollectionConfig) ApplyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = DefaultFlushTimeout
	}
}
