package state

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/mguentner/mailtoken/config"
	myCrypto "github.com/mguentner/mailtoken/crypto"
	"github.com/rs/zerolog/log"

	badger "github.com/dgraph-io/badger/v3"
)

const defaultRetention = 24 * time.Hour

// Status is the lifecycle position of one token.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
)

// State remembers what happened to issued tokens. The database lives in
// memory only; entries drop out after the retention period.
type State struct {
	DB          *badger.DB
	RSAKeyPairs []myCrypto.KeyPair
	Retention   time.Duration
}

type ZerologBadgerLogger struct {
	badger.Logger
}

func (zl ZerologBadgerLogger) Errorf(format string, v ...interface{}) {
	log.Error().Str("module", "badger").Msgf(format, v...)
}

func (zl ZerologBadgerLogger) Infof(format string, v ...interface{}) {
	log.Info().Str("module", "badger").Msgf(format, v...)
}

func (zl ZerologBadgerLogger) Warningf(format string, v ...interface{}) {
	log.Warn().Str("module", "badger").Msgf(format, v...)
}

func (zl ZerologBadgerLogger) Debugf(format string, v ...interface{}) {
	log.Debug().Str("module", "badger").Msgf(format, v...)
}

func NewState(config config.Config, rsaKeyPairs []myCrypto.KeyPair) (*State, error) {
	badgerOptions := badger.DefaultOptions("").WithInMemory(true).WithLogger(ZerologBadgerLogger{})
	db, err := badger.Open(badgerOptions)
	if err != nil {
		return nil, err
	}
	retention := time.Second * time.Duration(config.StateRetentionSeconds)
	if retention == 0 {
		retention = defaultRetention
	}
	return &State{
		DB:          db,
		RSAKeyPairs: rsaKeyPairs,
		Retention:   retention,
	}, nil
}

func (s *State) Close() error {
	return s.DB.Close()
}

// EncodeToken derives the journal key so tokens are never stored verbatim.
func EncodeToken(token string) string {
	tokenSha256 := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(tokenSha256[:])
}

type NoSuchToken struct{}

func (e *NoSuchToken) Error() string {
	return "NoSuchToken"
}

type InvalidTransition struct {
	From Status
	To   Status
}

func (e *InvalidTransition) Error() string {
	return "InvalidTransition: " + string(e.From) + " -> " + string(e.To)
}

// Record stores status for token. Only pending tokens may move on, a
// terminal status is never overwritten.
func (s *State) Record(token string, status Status) error {
	key := []byte(EncodeToken(token))
	return s.DB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var current Status
			err = item.Value(func(v []byte) error {
				current = Status(v)
				return nil
			})
			if err != nil {
				return err
			}
			if current != StatusPending || status == StatusPending {
				return &InvalidTransition{From: current, To: status}
			}
		}
		e := badger.NewEntry(key, []byte(status)).WithTTL(s.Retention)
		return txn.SetEntry(e)
	})
}

// StatusOf returns the last recorded status for token.
func (s *State) StatusOf(token string) (Status, error) {
	var status Status
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(EncodeToken(token)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &NoSuchToken{}
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			status = Status(v)
			return nil
		})
	})
	return status, err
}

// Counts tallies the journal by status.
func (s *State) Counts() (map[Status]int, error) {
	counts := map[Status]int{}
	err := s.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				counts[Status(v)]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return counts, err
}
