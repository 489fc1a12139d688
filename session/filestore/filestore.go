// Package filestore persists the session to a JSON file, the process
// equivalent of the browser storage the console historically used. The file
// keeps the token and the principal as two raw string values, matching the
// two storage keys older clients wrote, so their junk values ("undefined",
// "null", truncated JSON) can be recognized and healed.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/motrack/adminkit/session"
)

var _ session.Store = (*Store)(nil)

// Store is a file-backed session.Store. Writes are atomic: a temp file in
// the same directory is renamed over the target.
type Store struct {
	path string
}

type fileRecord struct {
	Token     string `json:"token"`
	Principal string `json:"principal"`
}

// New builds a Store persisting to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. Junk or unparsable content counts as no
// session and is removed so it cannot poison later reads.
func (s *Store) Load() (*session.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[filestore.Load] read")
	}

	var record fileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, s.heal()
	}

	token := session.SanitizeValue(record.Token)
	if token == "" {
		return nil, s.heal()
	}
	p, ok := session.DecodePrincipal(record.Principal)
	if !ok {
		return nil, s.heal()
	}

	return &session.Snapshot{Token: token, Principal: p}, nil
}

// Save atomically writes the snapshot.
func (s *Store) Save(snapshot *session.Snapshot) error {
	if snapshot == nil {
		return s.Clear()
	}
	principalJSON, err := json.Marshal(snapshot.Principal)
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] marshal principal")
	}
	data, err := json.MarshalIndent(fileRecord{
		Token:     snapshot.Token,
		Principal: string(principalJSON),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] marshal record")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] create temp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] write temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] close temp")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] rename")
	}
	return nil
}

// Clear removes the persisted session.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.Clear] remove")
	}
	return nil
}

// heal removes a corrupted file and reports no session.
func (s *Store) heal() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.heal] remove corrupted")
	}
	return nil
}
