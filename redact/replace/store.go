package replace

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists PER_POLICY session tables in a bbolt file so token
// consistency survives process restarts. Each session id owns one
// key in a single bucket; the value is the JSON-encoded table export.
type Store struct {
	db *bolt.DB
}

var tablesBucket = []byte("replacement-tables")

// OpenStore opens (creating if needed) the persistent table store.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open replacement store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tablesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init replacement store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (st *Store) Close() error { return st.db.Close() }

// Save writes the exported table for a session.
func (st *Store) Save(sessionID string, state ExportedTable) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode replacement table: %w", err)
	}
	err = st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tablesBucket).Put([]byte(sessionID), data)
	})
	if err != nil {
		return fmt.Errorf("save replacement table: %w", err)
	}
	return nil
}

// Load reads the exported table for a session. A missing session
// returns an empty table and no error.
func (st *Store) Load(sessionID string) (ExportedTable, error) {
	state := ExportedTable{Tokens: make(map[string]string)}
	err := st.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(tablesBucket).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return ExportedTable{}, fmt.Errorf("load replacement table: %w", err)
	}
	return state, nil
}
