package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog/log"
)

const (
	privateKeySuffix = ".key"
	publicKeySuffix  = ".pub"
)

// KeyPair is one session signing key. On disk a pair is stored as
// <validFrom>.key and <validFrom>.pub, validFrom being a unix timestamp.
type KeyPair struct {
	ValidFrom    int64
	PrivateKey   *rsa.PrivateKey
	PublicKey    *rsa.PublicKey
	PublicKeyPEM string
}

// ID is sent as the kid header of every token signed with the pair.
func (k KeyPair) ID() string {
	return strconv.FormatInt(k.ValidFrom, 10)
}

type MismatchedKeyPair struct {
	ValidFrom int64
}

func (e *MismatchedKeyPair) Error() string {
	return fmt.Sprintf("MismatchedKeyPair: %d.key and %d.pub do not belong together", e.ValidFrom, e.ValidFrom)
}

// ReadRSAKeysFromPath loads every complete key pair in path, newest first.
// Files that do not parse are skipped with a warning.
func ReadRSAKeysFromPath(path string) ([]KeyPair, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	keyPairs := []KeyPair{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, privateKeySuffix) {
			continue
		}
		stamp := strings.TrimSuffix(name, privateKeySuffix)
		keyPair, err := readKeyPair(path, stamp)
		if err != nil {
			log.Warn().Str("module", "crypto").Str("file", name).Msgf("Skipping key: %v", err)
			continue
		}
		keyPairs = append(keyPairs, *keyPair)
	}
	sortNewestFirst(keyPairs)
	log.Info().Str("module", "crypto").Msgf("Loaded %d signing keys from %s", len(keyPairs), path)
	return keyPairs, nil
}

func readKeyPair(dir string, stamp string) (*KeyPair, error) {
	validFrom, err := strconv.ParseUint(stamp, 10, 63)
	if err != nil {
		return nil, fmt.Errorf("Invalid timestamp %q: %w", stamp, err)
	}
	privateKeyData, err := os.ReadFile(filepath.Join(dir, stamp+privateKeySuffix))
	if err != nil {
		return nil, err
	}
	publicKeyData, err := os.ReadFile(filepath.Join(dir, stamp+publicKeySuffix))
	if err != nil {
		return nil, err
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, err
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, err
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, &MismatchedKeyPair{ValidFrom: int64(validFrom)}
	}
	return &KeyPair{
		ValidFrom:    int64(validFrom),
		PrivateKey:   privateKey,
		PublicKey:    publicKey,
		PublicKeyPEM: string(publicKeyData),
	}, nil
}

func sortNewestFirst(keyPairs []KeyPair) {
	sort.Slice(keyPairs, func(i, j int) bool {
		return keyPairs[i].ValidFrom > keyPairs[j].ValidFrom
	})
}

// SigningKeyAt returns the newest pair that became valid before unixTime, or
// nil. The slice is shared between requests and is only read.
func SigningKeyAt(keyPairs []KeyPair, unixTime int64) *KeyPair {
	var signingKey *KeyPair
	for i := range keyPairs {
		if keyPairs[i].ValidFrom >= unixTime {
			continue
		}
		if signingKey == nil || keyPairs[i].ValidFrom > signingKey.ValidFrom {
			signingKey = &keyPairs[i]
		}
	}
	return signingKey
}

func keyByID(keyPairs []KeyPair, id string) *KeyPair {
	for i := range keyPairs {
		if keyPairs[i].ID() == id {
			return &keyPairs[i]
		}
	}
	return nil
}

// GenerateKeyPair creates a fresh RSA pair valid from the given unix time.
func GenerateKeyPair(validFrom int64, bits int) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyDER})
	return &KeyPair{
		ValidFrom:    validFrom,
		PrivateKey:   privateKey,
		PublicKey:    &privateKey.PublicKey,
		PublicKeyPEM: string(publicKeyPEM),
	}, nil
}

// WriteKeyPair stores the pair in dir using the layout ReadRSAKeysFromPath
// expects.
func WriteKeyPair(dir string, keyPair *KeyPair) error {
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(keyPair.PrivateKey),
	})
	err := os.WriteFile(filepath.Join(dir, keyPair.ID()+privateKeySuffix), privateKeyPEM, 0600)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, keyPair.ID()+publicKeySuffix), []byte(keyPair.PublicKeyPEM), 0644)
}
