package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
)

// ML-DSA-44 (FIPS 204, the standardized successor to Dilithium2) parameter
// sizes.
const (
	DilithiumPublicKeySize  = 1312
	DilithiumPrivateKeySize = 2560
	DilithiumSignatureSize  = 2420
)

type DilithiumPrivateKey struct {
	key   mldsa44.PrivateKey
	bytes []byte
}

type DilithiumPublicKey struct {
	key   mldsa44.PublicKey
	bytes []byte
}

// GenerateDilithiumKeyPair generates a new ML-DSA-44 key pair.
func GenerateDilithiumKeyPair() (*DilithiumPrivateKey, *DilithiumPublicKey, error) {
	pub, priv, err := mldsa44.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate Dilithium key pair: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal Dilithium private key: %w", err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal Dilithium public key: %w", err)
	}
	return &DilithiumPrivateKey{key: *priv, bytes: privBytes},
		&DilithiumPublicKey{key: *pub, bytes: pubBytes}, nil
}

// Sign signs a message with ML-DSA-44.
func (priv *DilithiumPrivateKey) Sign(message []byte) ([]byte, error) {
	return mldsa44.Sign(&priv.key, message, nil), nil
}

// Verify verifies an ML-DSA-44 signature.
func (pub *DilithiumPublicKey) Verify(message, signature []byte) bool {
	return mldsa44.Verify(&pub.key, message, nil, signature)
}

// Bytes returns the public key as bytes
func (pub *DilithiumPublicKey) Bytes() []byte {
	return pub.bytes
}

// Bytes returns the private key as bytes
func (priv *DilithiumPrivateKey) Bytes() []byte {
	return priv.bytes
}

// DilithiumPublicKeyFromBytes creates a public key from bytes
func DilithiumPublicKeyFromBytes(data []byte) (*DilithiumPublicKey, error) {
	if len(data) != DilithiumPublicKeySize {
		return nil, errors.New("invalid public key size")
	}
	pub := &DilithiumPublicKey{bytes: append([]byte(nil), data...)}
	if err := pub.key.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("invalid Dilithium public key: %w", err)
	}
	return pub, nil
}

// DilithiumPrivateKeyFromBytes creates a private key from bytes
func DilithiumPrivateKeyFromBytes(data []byte) (*DilithiumPrivateKey, error) {
	if len(data) != DilithiumPrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	priv := &DilithiumPrivateKey{bytes: append([]byte(nil), data...)}
	if err := priv.key.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("invalid Dilithium private key: %w", err)
	}
	return priv, nil
}

// VerifyDilithium verifies an ML-DSA-44 signature given raw key bytes.
func VerifyDilithium(message, signature, publicKeyBytes []byte) bool {
	pub, err := DilithiumPublicKeyFromBytes(publicKeyBytes)
	if err != nil {
		return false
	}
	return pub.Verify(message, signature)
}
