// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists user-defined benchmark, check and report-config
// documents. BoltStore is the file-backed implementation of the config
// store the inspector reads them through.
package store

import (
	"context"
	"encoding/json"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var configBucket = []byte("configs")

// BoltStore keeps config documents in a single-file bolt database, one
// key per document id, values JSON-encoded.
type BoltStore struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening config store")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(configBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating config bucket")
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// GetConfig reads the document stored under id.
func (s *BoltStore) GetConfig(ctx context.Context, id string) (map[string]interface{}, bool, error) {
	var doc map[string]interface{}
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(configBucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "reading config "+id)
	}
	return doc, found, nil
}

// List returns every stored document id.
func (s *BoltStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).ForEach(func(k, v []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing configs")
	}
	return ids, nil
}

// Update stores doc under id, overwriting any previous document.
func (s *BoltStore) Update(ctx context.Context, id string, doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding config "+id)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).Put([]byte(id), raw)
	})
	return errors.Wrap(err, "writing config "+id)
}

// Delete removes the document stored under id. Deleting an absent id is a
// no-op, matching the config-store contract.
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(configBucket).Delete([]byte(id))
	})
	return errors.Wrap(err, "deleting config "+id)
}
