// Package checkpoint persists optimization attempt results, so a
// long reconstruction can report progress and detect finished runs.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the key name for all checkpoint records.
var MAIN = []byte("main")

// Data stores one checkpoint record.
type Data struct {
	// Attempt is the 1-based optimization attempt number.
	Attempt int
	// NegLogLike is the best negative log-likelihood so far.
	NegLogLike float64
	// X is the best flat parameter vector so far.
	X []float64
	// Final marks the record written after a successful run.
	Final bool
}

// IO provides checkpoint saving and loading.
type IO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewIO creates a new checkpoint IO. Saves are throttled to one per
// the given number of seconds.
func NewIO(db *bolt.DB, key []byte, seconds float64) *IO {
	return &IO{db: db, key: key, seconds: seconds}
}

// Save saves a checkpoint record.
func (s *IO) Save(data *Data) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key, dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load returns the stored checkpoint record, or nil if there is
// none.
func (s *IO) Load() (*Data, error) {
	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	var data *Data
	if err = json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	if data == nil || len(data.X) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished reconstruction checkpoint (attempt=%v, -lnL=%v)", data.Attempt, data.NegLogLike)
	} else {
		log.Noticef("Found unfinished reconstruction checkpoint (attempt=%v, -lnL=%v)", data.Attempt, data.NegLogLike)
	}
	return data, nil
}

// Old returns true if the last checkpoint save was too long ago.
func (s *IO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last checkpoint time to now.
func (s *IO) SetNow() {
	s.last = time.Now()
}

// SaveData saves a value in the bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from the bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
