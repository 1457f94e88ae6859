package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltLength       = 32
	keyLength        = 32
)

// EncryptedFileStore stores credentials in an AES-GCM encrypted file,
// keyed by a passphrase from the environment or a local passphrase file
type EncryptedFileStore struct {
	filePath string
}

type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a store backed by the given file path
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &EncryptedFileStore{filePath: filePath}, nil
}

// Store saves an account to the encrypted file
func (s *EncryptedFileStore) Store(account *Account) error {
	accounts, err := s.loadAccounts()
	if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
		return err
	}

	if accounts == nil {
		accounts = make(map[string]*Account)
	}
	accounts[account.Label] = account

	return s.saveAccounts(accounts)
}

// Retrieve gets an account from the encrypted file
func (s *EncryptedFileStore) Retrieve(label string) (*Account, error) {
	accounts, err := s.loadAccounts()
	if err != nil {
		return nil, err
	}

	account, ok := accounts[label]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns all accounts in the encrypted file
func (s *EncryptedFileStore) List() ([]*Account, error) {
	accounts, err := s.loadAccounts()
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := make([]*Account, 0, len(accounts))
	for _, account := range accounts {
		result = append(result, account)
	}
	return result, nil
}

// Delete removes an account, deleting the file when the last one goes
func (s *EncryptedFileStore) Delete(label string) error {
	accounts, err := s.loadAccounts()
	if err != nil {
		return err
	}

	if _, ok := accounts[label]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, label)

	if len(accounts) == 0 {
		return os.Remove(s.filePath)
	}
	return s.saveAccounts(accounts)
}

func (s *EncryptedFileStore) loadAccounts() (map[string]*Account, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrInvalidCredentials)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrInvalidCredentials)
	}

	passphrase, err := s.getPassphrase(false)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyLength, sha256.New)
	plaintext, err := decrypt(ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed", ErrInvalidCredentials)
	}

	var accounts map[string]*Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return accounts, nil
}

func (s *EncryptedFileStore) saveAccounts(accounts map[string]*Account) error {
	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	passphrase, err := s.getPassphrase(true)
	if err != nil {
		return err
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyLength, sha256.New)
	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	file := encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		Version:   1,
		Modified:  time.Now(),
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials file: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize credentials file: %w", err)
	}
	return nil
}

// getPassphrase resolves the encryption passphrase: environment first,
// then a passphrase file next to the store, generated on first save
func (s *EncryptedFileStore) getPassphrase(createIfMissing bool) (string, error) {
	if passphrase := os.Getenv("FBSAVER_PASSPHRASE"); passphrase != "" {
		return passphrase, nil
	}

	passphrasePath := filepath.Join(filepath.Dir(s.filePath), ".passphrase")
	data, err := os.ReadFile(passphrasePath)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read passphrase file: %w", err)
	}
	if !createIfMissing {
		return "", fmt.Errorf("%w: no passphrase available", ErrStoreUnavailable)
	}

	passphrase, err := generatePassphrase()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(passphrasePath, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to write passphrase file: %w", err)
	}
	return passphrase, nil
}

func generatePassphrase() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
