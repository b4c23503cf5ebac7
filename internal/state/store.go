package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

// DefaultKeyPrefix is the key prefix shared with other services.
const DefaultKeyPrefix = "user_state:name:"

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Store reads and writes user documents.
type Store struct {
	backend Backend
	prefix  string
	now     func() time.Time
	logger  Logger
}

// NewStore creates a store on backend. An empty prefix uses DefaultKeyPrefix.
func NewStore(backend Backend, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Key returns the backend key for user.
func (s *Store) Key(user string) string {
	return s.prefix + user
}

// ReadRaw returns the stored document exactly as written, without touching
// the derived fields or the backend.
func (s *Store) ReadRaw(ctx context.Context, user string) (*Document, error) {
	if user == "" {
		return nil, ErrInvalidUser
	}
	raw, err := s.backend.Get(ctx, s.Key(user))
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, user, err)
	}
	return &doc, nil
}

// Read returns the document with current date, time and weekday filled in.
// The refreshed document is written back without a TTL.
func (s *Store) Read(ctx context.Context, user string) (*Document, error) {
	doc, err := s.ReadRaw(ctx, user)
	if err != nil {
		return nil, err
	}
	Materialize(doc, s.now())
	if err := s.Write(ctx, user, doc, 0); err != nil {
		return nil, err
	}
	return doc, nil
}

// Write replaces the user's document. A zero ttl means no expiry.
func (s *Store) Write(ctx context.Context, user string, doc *Document, ttl time.Duration) error {
	if user == "" {
		return ErrInvalidUser
	}
	if err := doc.validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("state: encoding document for %s: %w", user, err)
	}
	return s.backend.Set(ctx, s.Key(user), raw, ttl)
}

// Update merges fields into the user's document, creating a minimal
// document first if none exists. The merge is shallow: each field replaces
// the stored value wholesale. Field names must be Document fields and the
// result must still decode as a Document.
func (s *Store) Update(ctx context.Context, user string, fields Fields) (*Document, error) {
	if user == "" {
		return nil, ErrInvalidUser
	}

	patch := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		encoded, err := encodeField(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidDocument, name, err)
		}
		patch[name] = encoded
	}
	if err := checkFields(patch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	merged := make(map[string]json.RawMessage)
	raw, err := s.backend.Get(ctx, s.Key(user))
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("creating user document", "user", user)
		base, err := json.Marshal(NewDocument(user))
		if err != nil {
			return nil, fmt.Errorf("state: encoding document for %s: %w", user, err)
		}
		raw = base
	case err != nil:
		return nil, err
	}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, user, err)
	}

	maps.Copy(merged, patch)

	combined, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("state: encoding document for %s: %w", user, err)
	}
	var doc Document
	if err := json.Unmarshal(combined, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, user, err)
	}

	if err := s.Write(ctx, user, &doc, 0); err != nil {
		return nil, err
	}
	return &doc, nil
}

// checkFields rejects names that Document does not define, which a merge
// would otherwise drop without notice.
func checkFields(patch map[string]json.RawMessage) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc Document
	return dec.Decode(&doc)
}

// encodeField keeps json.RawMessage and []byte JSON verbatim.
func encodeField(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case json.RawMessage:
		if !json.Valid(t) {
			return nil, errors.New("invalid JSON")
		}
		return bytes.Clone(t), nil
	case []byte:
		if !json.Valid(t) {
			return nil, errors.New("invalid JSON")
		}
		return bytes.Clone(t), nil
	default:
		return json.Marshal(v)
	}
}

// Delete removes the user's document.
func (s *Store) Delete(ctx context.Context, user string) error {
	if user == "" {
		return ErrInvalidUser
	}
	return s.backend.Delete(ctx, s.Key(user))
}

// Users lists users that have a stored document.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		if u := strings.TrimPrefix(k, s.prefix); u != "" {
			users = append(users, u)
		}
	}
	return users, nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
