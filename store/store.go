// Package store keeps named encoded animations in a bbolt resource file.
package store

import (
	"encoding/binary"
	"log"
	"sort"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/mogaika/bfbb_anm/anm"
)

var animationsBucket = []byte("animations")

var ErrNotFound = errors.New("animation not found")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0666, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open resource file %q", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(animationsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "Failed to create animations bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutRaw stores file bytes as is after checking they decode.
func (s *Store) PutRaw(name string, data []byte) error {
	if name == "" {
		return errors.New("Empty animation name")
	}
	if _, err := anm.Decode(data); err != nil {
		return errors.Wrapf(err, "Refusing to store %q", name)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(animationsBucket).Put([]byte(name), data)
	})
	if err != nil {
		return errors.Wrapf(err, "Failed to store %q", name)
	}
	log.Printf("[store] saved %q (%d bytes)", name, len(data))
	return nil
}

func (s *Store) Put(name string, a *anm.Anm, order binary.ByteOrder) error {
	data, err := anm.Encode(a, order)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode %q", name)
	}
	return s.PutRaw(name, data)
}

func (s *Store) GetRaw(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(animationsBucket).Get([]byte(name))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%q", name)
		}
		// bolt memory is valid only inside transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (s *Store) Get(name string) (*anm.Anm, error) {
	data, err := s.GetRaw(name)
	if err != nil {
		return nil, err
	}
	a, err := anm.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %q", name)
	}
	return a, nil
}

func (s *Store) Has(name string) bool {
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(animationsBucket).Get([]byte(name)) != nil
		return nil
	})
	return found
}

func (s *Store) List() ([]string, error) {
	names := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(animationsBucket).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(animationsBucket)
		if b.Get([]byte(name)) == nil {
			return errors.Wrapf(ErrNotFound, "%q", name)
		}
		return b.Delete([]byte(name))
	})
}
