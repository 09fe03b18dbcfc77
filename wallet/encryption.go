package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize = 32

	// salt | memory | iterations | parallelism, followed by the nonce and the ciphertext.
	headerSize = saltSize + 4 + 4 + 1
)

var (
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted secret")
	ErrSealedTooShort  = errors.New("sealed secret is too short")
)

// KDFParams are the Argon2id parameters a secret is sealed with. They travel with the sealed bytes,
// so changing the defaults does not lock out existing stores.
type KDFParams struct {
	// In KiB
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

func DefaultKDFParams() KDFParams {
	return KDFParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(passphrase, salt []byte, params KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Seal encrypts plaintext under passphrase with Argon2id and XChaCha20-Poly1305.
func Seal(plaintext, passphrase []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := make([]byte, 0, headerSize+len(nonce)+len(plaintext)+aead.Overhead())
	sealed = append(sealed, salt...)
	sealed = binary.LittleEndian.AppendUint32(sealed, params.Memory)
	sealed = binary.LittleEndian.AppendUint32(sealed, params.Iterations)
	sealed = append(sealed, params.Parallelism)
	sealed = append(sealed, nonce...)

	// The header is authenticated so the parameters can not be swapped.
	header := append([]byte{}, sealed[:headerSize]...)
	return aead.Seal(sealed, nonce, plaintext, header), nil
}

// Open reverses Seal.
func Open(sealed, passphrase []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	if len(sealed) < headerSize+nonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes", ErrSealedTooShort, len(sealed))
	}

	salt := sealed[:saltSize]
	params := KDFParams{
		Memory:      binary.LittleEndian.Uint32(sealed[saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[saltSize+4:]),
		Parallelism: sealed[saltSize+8],
	}
	nonce := sealed[headerSize : headerSize+nonceSize]
	ciphertext := sealed[headerSize+nonceSize:]

	key := deriveKey(passphrase, salt, params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, sealed[:headerSize])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}
