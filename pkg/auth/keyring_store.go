package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "fbsaver"
	// labelIndexKey holds the list of stored labels since keyring
	// backends cannot enumerate their own entries
	labelIndexKey = "_accounts"
)

// KeyringStore stores credentials in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed store, probing the backend
// once so an unusable keychain fails fast
func NewKeyringStore() (*KeyringStore, error) {
	probe := "fbsaver-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

// Store saves an account to the system keychain
func (s *KeyringStore) Store(account *Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if err := keyring.Set(keyringService, account.Label, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return s.addToIndex(account.Label)
}

// Retrieve gets an account from the system keychain
func (s *KeyringStore) Retrieve(label string) (*Account, error) {
	data, err := keyring.Get(keyringService, label)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return &account, nil
}

// List returns all accounts recorded in the label index
func (s *KeyringStore) List() ([]*Account, error) {
	labels, err := s.readIndex()
	if err != nil {
		return nil, err
	}

	var accounts []*Account
	for _, label := range labels {
		account, err := s.Retrieve(label)
		if err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Delete removes an account from the system keychain
func (s *KeyringStore) Delete(label string) error {
	if err := keyring.Delete(keyringService, label); err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.removeFromIndex(label)
}

func (s *KeyringStore) readIndex() ([]string, error) {
	data, err := keyring.Get(keyringService, labelIndexKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	if data == "" {
		return nil, nil
	}
	return strings.Split(data, "\n"), nil
}

func (s *KeyringStore) addToIndex(label string) error {
	labels, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, l := range labels {
		if l == label {
			return nil
		}
	}
	labels = append(labels, label)
	return keyring.Set(keyringService, labelIndexKey, strings.Join(labels, "\n"))
}

func (s *KeyringStore) removeFromIndex(label string) error {
	labels, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := labels[:0]
	for _, l := range labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		_ = keyring.Delete(keyringService, labelIndexKey)
		return nil
	}
	return keyring.Set(keyringService, labelIndexKey, strings.Join(kept, "\n"))
}
