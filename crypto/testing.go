package crypto

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	testKeyOnce sync.Once
	testKeyPair *KeyPair
)

// KeyPairForTesting returns a single key pair valid since the epoch. The key
// is generated once per process and shared by all callers.
func KeyPairForTesting() []KeyPair {
	testKeyOnce.Do(func() {
		keyPair, err := GenerateKeyPair(0, 2048)
		if err != nil {
			log.Fatal().Msgf("Could not generate test key: %v", err)
		}
		testKeyPair = keyPair
	})
	return []KeyPair{*testKeyPair}
}
