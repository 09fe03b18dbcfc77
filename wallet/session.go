package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kisa-team/gonka-wallet/bridge"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
)

var (
	ErrInvalidSeed     = crypto.ErrInvalidSeed
	ErrNoActiveAccount = errors.New("no wallet is loaded")
)

// Session owns the active account. The key is derived once from the stored seed and kept for the
// life of the session.
type Session struct {
	store      SecretStore
	derivation crypto.DerivationParams

	lock   sync.RWMutex
	active *crypto.KeyPair

	logger *log.Logger
}

var _ bridge.AccountSource = (*Session)(nil)

func NewSession(store SecretStore, derivation crypto.DerivationParams, logger *log.Logger) *Session {
	return &Session{
		store:      store,
		derivation: derivation,
		logger:     logger.ApplyPrefix("🔑 [session]"),
	}
}

// Generate creates a new seed phrase, stores it and makes its account active. The phrase is returned
// once so the user can back it up.
func (s *Session) Generate() (string, error) {
	mnemonic, err := crypto.GenerateMnemonic()
	if err != nil {
		return "", fmt.Errorf("generate seed phrase: %w", err)
	}
	if err := s.activate(mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// Import validates and stores an existing seed phrase. An invalid phrase is ErrInvalidSeed and leaves
// the store untouched.
func (s *Session) Import(mnemonic string) error {
	if err := crypto.ValidateMnemonic(mnemonic); err != nil {
		return err
	}
	return s.activate(crypto.NormalizeMnemonic(mnemonic))
}

// Load activates the stored seed phrase, if there is one.
func (s *Session) Load() (bool, error) {
	mnemonic, err := s.store.Get()
	if errors.Is(err, ErrNoSecret) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	kp, err := crypto.DeriveAccount(mnemonic, s.derivation)
	if err != nil {
		return false, err
	}
	s.setActive(kp)
	return true, nil
}

// Logout clears the store and drops the active account.
func (s *Session) Logout() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.setActive(nil)
	s.logger.Info("logged out")
	return nil
}

// Active returns the account that signs, if a wallet is loaded.
func (s *Session) Active() (tx.SigningAccount, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.active == nil {
		return tx.SigningAccount{}, false
	}
	return tx.AccountFromKeyPair(s.active), true
}

func (s *Session) Address() (string, error) {
	account, ok := s.Active()
	if !ok {
		return "", ErrNoActiveAccount
	}
	return account.Address, nil
}

func (s *Session) activate(mnemonic string) error {
	kp, err := crypto.DeriveAccount(mnemonic, s.derivation)
	if err != nil {
		return err
	}
	if err := s.store.Set(mnemonic); err != nil {
		return fmt.Errorf("store seed phrase: %w", err)
	}
	s.setActive(kp)
	return nil
}

func (s *Session) setActive(kp *crypto.KeyPair) {
	s.lock.Lock()
	s.active = kp
	s.lock.Unlock()

	if kp != nil {
		s.logger.Info("account loaded", "address", kp.Address)
	}
}
