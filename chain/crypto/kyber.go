package crypto

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

// Kyber768 parameter sizes (circl's kem/kyber/kyber768, the round-3 Kyber
// scheme rather than FIPS 203 ML-KEM-768).
const (
	KyberPublicKeySize    = kyber768.PublicKeySize
	KyberPrivateKeySize   = kyber768.PrivateKeySize
	KyberCiphertextSize   = kyber768.CiphertextSize
	KyberSharedSecretSize = kyber768.SharedKeySize
)

var kyberScheme = kyber768.Scheme()

type KyberPrivateKey struct {
	bytes []byte
}

type KyberPublicKey struct {
	bytes []byte
}

// GenerateKyberKeyPair generates a new Kyber768 key pair.
func GenerateKyberKeyPair() (*KyberPrivateKey, *KyberPublicKey, error) {
	pub, priv, err := kyberScheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate Kyber key pair: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal Kyber private key: %w", err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal Kyber public key: %w", err)
	}
	return &KyberPrivateKey{bytes: privBytes}, &KyberPublicKey{bytes: pubBytes}, nil
}

// Encapsulate generates a shared secret and encapsulates it against pub.
func (pub *KyberPublicKey) Encapsulate() ([]byte, []byte, error) {
	pk, err := kyberScheme.UnmarshalBinaryPublicKey(pub.bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid Kyber public key: %w", err)
	}
	ciphertext, sharedSecret, err := kyberScheme.Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("kyber encapsulation failed: %w", err)
	}
	return ciphertext, sharedSecret, nil
}

// Decapsulate recovers the shared secret from the ciphertext.
func (priv *KyberPrivateKey) Decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != KyberCiphertextSize {
		return nil, errors.New("invalid ciphertext size")
	}
	sk, err := kyberScheme.UnmarshalBinaryPrivateKey(priv.bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid Kyber private key: %w", err)
	}
	return kyberScheme.Decapsulate(sk, ciphertext)
}

// Bytes returns the public key as bytes
func (pub *KyberPublicKey) Bytes() []byte {
	return pub.bytes
}

// Bytes returns the private key as bytes
func (priv *KyberPrivateKey) Bytes() []byte {
	return priv.bytes
}

// KyberPublicKeyFromBytes creates a public key from bytes
func KyberPublicKeyFromBytes(data []byte) (*KyberPublicKey, error) {
	if len(data) != KyberPublicKeySize {
		return nil, errors.New("invalid public key size")
	}
	if _, err := kyberScheme.UnmarshalBinaryPublicKey(data); err != nil {
		return nil, fmt.Errorf("invalid Kyber public key: %w", err)
	}
	return &KyberPublicKey{bytes: append([]byte(nil), data...)}, nil
}

// KyberPrivateKeyFromBytes creates a private key from bytes
func KyberPrivateKeyFromBytes(data []byte) (*KyberPrivateKey, error) {
	if len(data) != KyberPrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	if _, err := kyberScheme.UnmarshalBinaryPrivateKey(data); err != nil {
		return nil, fmt.Errorf("invalid Kyber private key: %w", err)
	}
	return &KyberPrivateKey{bytes: append([]byte(nil), data...)}, nil
}

// KyberDecapsulate performs KEM decapsulation given raw bytes.
func KyberDecapsulate(ciphertext, privateKeyBytes []byte) ([]byte, error) {
	priv, err := KyberPrivateKeyFromBytes(privateKeyBytes)
	if err != nil {
		return nil, err
	}
	return priv.Decapsulate(ciphertext)
}
