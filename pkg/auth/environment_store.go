package auth

import (
	"errors"
	"os"
)

// EnvironmentStore reads credentials from environment variables.
// It is read-only and always last in the fallback chain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (s *EnvironmentStore) Store(account *Account) error {
	return errors.New("cannot store credentials in environment variables")
}

// Retrieve reads the session from FBSAVER_* variables; the label is
// ignored since the environment holds at most one session
func (s *EnvironmentStore) Retrieve(label string) (*Account, error) {
	cUser := os.Getenv("FBSAVER_C_USER")
	xs := os.Getenv("FBSAVER_XS")
	fbDtsg := os.Getenv("FBSAVER_FB_DTSG")

	if cUser == "" || xs == "" || fbDtsg == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Label:     "environment",
		CUser:     cUser,
		XS:        xs,
		FBDtsg:    fbDtsg,
		UserAgent: os.Getenv("FBSAVER_USER_AGENT"),
	}, nil
}

// List returns the environment session if one is configured
func (s *EnvironmentStore) List() ([]*Account, error) {
	account, err := s.Retrieve("")
	if err != nil {
		return nil, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (s *EnvironmentStore) Delete(label string) error {
	return errors.New("cannot delete credentials from environment variables")
}
