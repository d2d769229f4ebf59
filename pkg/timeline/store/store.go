// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package store

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	proto "github.com/gogo/protobuf/proto"

	timelinev1 "github.com/antimetal/timeline-agent/pkg/api/timeline/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
)

type keyPart = []byte

var entityKey = keyPart("ent")

// Store holds the timeline entities written by application collectors.
// Entities are keyed by (application id, entity type, entity id); everything
// belonging to one application lives under a common key prefix so it can be
// scanned and deleted together when the application's collector is removed.
type Store struct {
	mu sync.RWMutex

	store *badger.DB
}

// New creates a Store backed by badger at path. An empty path opens an
// in-memory store.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{store: db}, nil
}

// Put writes entities under appID. Entities with an empty type or id are
// rejected; an existing entity with the same (type, id) is replaced.
func (s *Store) Put(appID string, entities ...*timelinev1.TimelineEntity) error {
	if err := validateKeyPart(appID); err != nil {
		return fmt.Errorf("invalid application id: %w", err)
	}
	for _, e := range entities {
		if err := validateKeyPart(e.GetEntityType()); err != nil {
			return fmt.Errorf("invalid entity type: %w", err)
		}
		if err := validateKeyPart(e.GetEntityId()); err != nil {
			return fmt.Errorf("invalid entity id: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Update(func(txn *badger.Txn) error {
		for _, e := range entities {
			data, err := proto.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entity: %w", err)
			}
			key := buildKey(entityKey, keyPart(appID), keyPart(e.EntityType), keyPart(e.EntityId))
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("failed to write entity: %w", err)
			}
		}
		return nil
	})
}

// Get returns the entity stored under (appID, entityType, entityID).
// If the entity does not exist, it returns ErrEntityNotFound.
func (s *Store) Get(appID, entityType, entityID string) (*timelinev1.TimelineEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := buildKey(entityKey, keyPart(appID), keyPart(entityType), keyPart(entityID))
	var val []byte
	err := s.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	entity := &timelinev1.TimelineEntity{}
	err = proto.Unmarshal(val, entity)
	return entity, err
}

// Query returns all entities stored under appID, optionally restricted to a
// single entity type. An application with no stored entities yields an empty
// result, not an error.
func (s *Store) Query(appID, entityType string) ([]*timelinev1.TimelineEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := buildKey(entityKey, keyPart(appID))
	if entityType != "" {
		prefix = buildKey(entityKey, keyPart(appID), keyPart(entityType))
	}
	// Terminate the prefix so "app" does not match "app2".
	prefix = append(prefix, '/')

	var entities []*timelinev1.TimelineEntity
	err := s.store.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				entity := &timelinev1.TimelineEntity{}
				if err := proto.Unmarshal(val, entity); err != nil {
					return fmt.Errorf("failed to unmarshal entity: %w", err)
				}
				entities = append(entities, entity)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entities, err
}

// DeleteApp removes every entity stored under appID.
func (s *Store) DeleteApp(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := append(buildKey(entityKey, keyPart(appID)), '/')
	return s.store.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete entity: %w", err)
			}
		}
		return nil
	})
}

// Close closes the store.
// It is idempotent - calling Close multiple times will close only once.
func (s *Store) Close() error {
	return s.store.Close()
}

func buildKey(parts ...keyPart) []byte {
	b := bytes.Buffer{}
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		b.WriteByte('/')
		b.Write(p)
	}
	return b.Bytes()
}

func validateKeyPart(p string) error {
	if p == "" {
		return errors.New("must not be empty")
	}
	if strings.ContainsRune(p, '/') {
		return fmt.Errorf("%q must not contain '/'", p)
	}
	return nil
}
