package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var ErrNoSecret = errors.New("no seed phrase stored")

var seedKey = []byte("wallet/seed")

// SecretStore holds the one seed phrase of the wallet.
type SecretStore interface {
	// Get returns ErrNoSecret when nothing is stored.
	Get() (string, error)
	Set(secret string) error
	Clear() error
}

// MemoryStore keeps the secret in process memory only.
type MemoryStore struct {
	lock   sync.Mutex
	secret string
}

var _ SecretStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.secret == "" {
		return "", ErrNoSecret
	}
	return s.secret, nil
}

func (s *MemoryStore) Set(secret string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.secret = secret
	return nil
}

func (s *MemoryStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.secret = ""
	return nil
}

// BadgerStore persists the secret sealed under a passphrase.
type BadgerStore struct {
	db         *badger.DB
	passphrase []byte
	params     KDFParams
}

var _ SecretStore = (*BadgerStore)(nil)

// OpenBadgerStore opens, or creates, the store in dir.
func OpenBadgerStore(dir string, passphrase []byte, params KDFParams) (*BadgerStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("a passphrase is required")
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("keystore at %s is in use by another process: %w", dir, err)
		}
		return nil, fmt.Errorf("open keystore at %s: %w", dir, err)
	}

	return &BadgerStore{
		db:         db,
		passphrase: append([]byte{}, passphrase...),
		params:     params,
	}, nil
}

func (s *BadgerStore) Get() (string, error) {
	var sealed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seedKey)
		if err != nil {
			return err
		}
		sealed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNoSecret
	}
	if err != nil {
		return "", fmt.Errorf("read keystore: %w", err)
	}

	plaintext, err := Open(sealed, s.passphrase)
	if err != nil {
		return "", err
	}
	defer zero(plaintext)
	return string(plaintext), nil
}

func (s *BadgerStore) Set(secret string) error {
	sealed, err := Seal([]byte(secret), s.passphrase, s.params)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seedKey, sealed)
	})
	if err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

func (s *BadgerStore) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(seedKey)
	})
	if err != nil {
		return fmt.Errorf("clear keystore: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	zero(s.passphrase)
	return s.db.Close()
}
