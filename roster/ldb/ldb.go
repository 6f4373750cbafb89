// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ldb implements a roster store backed by LevelDB.
package ldb // import "mellium.im/ymsg/roster/ldb"

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"mellium.im/ymsg/roster"
)

var friendPrefix = []byte("friend/")

type record struct {
	Group string `cbor:"1,keyasint"`
}

// Store is a roster.Store that persists friends in a LevelDB database.
// It is safe for concurrent use.
type Store struct {
	db *leveldb.DB
}

var _ roster.Store = (*Store)(nil)

// Open opens or creates the database at path.
// If the database is corrupted an attempt is made to recover it.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		log.Warn().Str("path", path).Err(err).Msg("roster database corrupted")
		db, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "recovering roster database %s", path)
		}
		log.Warn().Str("path", path).Msg("roster database recovered")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening roster database %s", path)
	}
	return &Store{db: db}, nil
}

func key(id string) []byte {
	return append(append([]byte(nil), friendPrefix...), roster.Normalize(id)...)
}

// FindOrCreate implements roster.Store.
func (s *Store) FindOrCreate(id, group string) error {
	v, err := cbor.Marshal(record{Group: group})
	if err != nil {
		return errors.Wrap(err, "encoding roster record")
	}
	return errors.Wrap(s.db.Put(key(id), v, nil), "storing friend")
}

// Remove implements roster.Store.
func (s *Store) Remove(id string) error {
	return errors.Wrap(s.db.Delete(key(id), nil), "removing friend")
}

// Entries implements roster.Store.
func (s *Store) Entries() ([]roster.Entry, error) {
	iter := s.db.NewIterator(util.BytesPrefix(friendPrefix), nil)
	defer iter.Release()

	groups := make(map[string]string)
	for iter.Next() {
		var r record
		if err := cbor.Unmarshal(iter.Value(), &r); err != nil {
			return nil, errors.Wrapf(err, "decoding roster record %q", iter.Key())
		}
		groups[string(iter.Key()[len(friendPrefix):])] = r.Group
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating roster")
	}
	return roster.GroupEntries(groups), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
