package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	digest, err := hasher.Hash("123456789")
	if err != nil {
		t.Fatal(err)
	}
	if digest == "123456789" {
		t.Fatal("Expected the digest to differ from the plaintext")
	}
	ok, err := hasher.Compare("123456789", digest)
	if err != nil || !ok {
		t.Fatalf("Expected the plaintext to match: %t %v", ok, err)
	}
	ok, err = hasher.Compare("wrong", digest)
	if err != nil || ok {
		t.Fatalf("Expected a mismatch without error: %t %v", ok, err)
	}
}

func TestBcryptHasherTooLong(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	_, err := hasher.Hash(strings.Repeat("x", 100))
	if err == nil {
		t.Fatal("Expected bcrypt to reject a credential longer than 72 bytes")
	}
}

func TestBcryptHasherMalformedDigest(t *testing.T) {
	hasher := BcryptHasher{}
	_, err := hasher.Compare("x", "not-a-digest")
	if err == nil {
		t.Fatal("Expected an error for a malformed digest")
	}
}
