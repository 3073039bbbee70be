// Package persistence encodes session records for byte-oriented stores.
//
// Stores call Decode on every Load, so a record that fails to decode surfaces
// as domain.ErrCorruptSession and the session manager replaces it with a fresh
// session instead of failing the turn.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Codec turns sessions into bytes and back.
type Codec interface {
	Encode(sess *domain.Session) ([]byte, error)
	Decode(data []byte) (*domain.Session, error)
}

// JSONCodec stores sessions as plain JSON records.
type JSONCodec struct {
	// Indent pretty-prints records, which keeps file stores readable.
	Indent bool
}

// Encode marshals the session record.
func (c JSONCodec) Encode(sess *domain.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("cannot encode nil session")
	}
	var (
		data []byte
		err  error
	)
	if c.Indent {
		data, err = json.MarshalIndent(sess, "", "  ")
	} else {
		data, err = json.Marshal(sess)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// Decode unmarshals a session record.
func (c JSONCodec) Decode(data []byte) (*domain.Session, error) {
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSession, err)
	}
	return &sess, nil
}
