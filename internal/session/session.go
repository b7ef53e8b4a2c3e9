// Package session owns the mutable state of one anonymization cycle for
// one document: the entity store, the detection settings, and the last
// produced entity map. Every operation is serialized by the session
// mutex, so a Session can be shared by one logical caller at a time
// (e.g. an HTTP handler chain) without external locking.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/veil-labs/veil/internal/anonymizer"
	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/detector"
	"github.com/veil-labs/veil/internal/entity"
	"github.com/veil-labs/veil/internal/llm"
	"github.com/veil-labs/veil/internal/storage"
)

// ErrEmptyInput is returned when no text is supplied to an operation
// that requires it.
var ErrEmptyInput = errors.New("no text supplied")

// Session is a per-document anonymization context.
type Session struct {
	mu sync.Mutex

	id       string
	detector *detector.Detector
	source   *llm.Source    // optional external entity source
	kv       *storage.Store // optional persistence collaborator
	settings config.Settings

	store   *entity.Store
	lastMap anonymizer.EntityMap
}

// Option configures a Session.
type Option func(*Session)

// WithExternalSource attaches an external entity source.
func WithExternalSource(src *llm.Source) Option {
	return func(s *Session) { s.source = src }
}

// WithStorage attaches the persistence collaborator. Storage failures
// are logged and swallowed; they never abort an in-memory operation.
func WithStorage(kv *storage.Store) Option {
	return func(s *Session) { s.kv = kv }
}

// WithSettings overrides the default detection settings.
func WithSettings(settings config.Settings) Option {
	return func(s *Session) { s.settings = settings }
}

// New creates a session around a detector.
func New(d *detector.Detector, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New().String(),
		detector: d,
		settings: config.DefaultSettings(),
		store:    entity.NewStore(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Settings returns the current detection settings.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the detection settings and persists them when a
// storage collaborator is attached.
func (s *Session) SetSettings(ctx context.Context, settings config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err == nil {
		err = s.kv.Save(ctx, storage.KeySettings, data)
	}
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("settings_save_failed")
	}
}

// Detect scans text with the regex detector, merges the results into the
// entity store, and — when the settings ask for it and a source is
// attached — requests external entities afterwards. Regex entities are
// always merged before the external request is issued, so partial
// results survive an external failure: the returned error then reports
// the failure while the store keeps the regex entities.
func (s *Session) Detect(ctx context.Context, text string) ([]entity.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	detected := s.detector.Detect(ctx, text, s.settings.EnabledCategories)
	for _, e := range detected {
		s.store.Add(e)
	}

	if !s.settings.UseExternalSource {
		return s.store.Entities(), nil
	}
	if s.source == nil {
		return s.store.Entities(), llm.ErrUnconfigured
	}

	external, err := s.source.Detect(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("external_source_failed")
		return s.store.Entities(), err
	}
	accepted := 0
	for _, e := range external {
		if s.store.Add(e) {
			accepted++
		}
	}
	log.Debug().
		Str("session_id", s.id).
		Int("external_candidates", len(external)).
		Int("external_accepted", accepted).
		Msg("external_entities_merged")

	return s.store.Entities(), nil
}

// AddManual adds a manually selected entity through the same dedup path
// as detected and external entities.
func (s *Session) AddManual(e entity.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Add(e)
}

// RemoveEntity removes the entity at the given position in the current
// sorted order.
func (s *Session) RemoveEntity(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Remove(i)
}

// ClearEntities empties the entity store.
func (s *Session) ClearEntities() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
}

// Entities returns the stored entities in sorted order.
func (s *Session) Entities() []entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Entities()
}

// Anonymize tokenizes text against the stored entities, remembers the
// produced entity map as the session's current map, and persists it when
// a storage collaborator is attached.
func (s *Session) Anonymize(ctx context.Context, text string) (string, anonymizer.EntityMap, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenized, m := anonymizer.Anonymize(ctx, text, s.store.Entities())
	s.lastMap = m
	s.persistMap(ctx)
	return tokenized, m, nil
}

// Deanonymize restores original values using the session's current
// entity map. Unresolved placeholders pass through unchanged.
func (s *Session) Deanonymize(ctx context.Context, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return anonymizer.Deanonymize(ctx, text, s.lastMap)
}

// EntityMap returns the session's current entity map.
func (s *Session) EntityMap() anonymizer.EntityMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMap
}

// ExportMap serializes the current entity map as JSON.
func (s *Session) ExportMap() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMap == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.lastMap)
}

// ImportMap replaces the session's entity map with one parsed from JSON.
// Malformed JSON is reported and nothing is mutated.
func (s *Session) ImportMap(ctx context.Context, data []byte) error {
	m, err := anonymizer.ParseEntityMap(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMap = m
	s.persistMap(ctx)
	return nil
}

// LoadPersisted restores the entity map and settings previously saved by
// this installation, when a storage collaborator is attached. Missing
// keys and storage failures leave the in-memory state untouched.
func (s *Session) LoadPersisted(ctx context.Context) {
	if s.kv == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := s.kv.Load(ctx, storage.KeyEntityMap); err == nil {
		if m, perr := anonymizer.ParseEntityMap(data); perr == nil {
			s.lastMap = m
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		log.Warn().Err(err).Str("session_id", s.id).Msg("entity_map_load_failed")
	}

	if data, err := s.kv.Load(ctx, storage.KeySettings); err == nil {
		if settings, perr := config.ParseSettings(data); perr == nil {
			s.settings = settings
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		log.Warn().Err(err).Str("session_id", s.id).Msg("settings_load_failed")
	}
}

// persistMap saves the current map under the fixed key. Callers hold the
// session mutex.
func (s *Session) persistMap(ctx context.Context) {
	if s.kv == nil || s.lastMap == nil {
		return
	}
	data, err := json.Marshal(s.lastMap)
	if err == nil {
		err = s.kv.Save(ctx, storage.KeyEntityMap, data)
	}
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("entity_map_save_failed")
	}
}
