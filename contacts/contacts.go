// Package contacts maintains a local, JSON-backed directory of known
// agents with associated trust levels, grounded on
// original_source/src/contacts.rs. It is wired into the Pub/Sub manager
// (see pubsub.Manager) so that messages from blocked senders are dropped
// before local delivery or re-broadcast.
package contacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"x0x/identity"
)

// TrustLevel controls how messages from a contact are handled.
type TrustLevel int

const (
	// Blocked: messages silently dropped, never rebroadcast.
	Blocked TrustLevel = iota
	// Unknown: default for new senders — delivered; nothing marks these
	// messages as coming from an unknown sender.
	Unknown
	// Known: seen before, not explicitly trusted — delivered normally.
	Known
	// Trusted: full delivery, can trigger actions.
	Trusted
)

func (t TrustLevel) String() string {
	switch t {
	case Blocked:
		return "blocked"
	case Unknown:
		return "unknown"
	case Known:
		return "known"
	case Trusted:
		return "trusted"
	default:
		return "unknown"
	}
}

// ParseTrustLevel parses a trust level string case-insensitively.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch strings.ToLower(s) {
	case "blocked":
		return Blocked, nil
	case "unknown":
		return Unknown, nil
	case "known":
		return Known, nil
	case "trusted":
		return Trusted, nil
	default:
		return Unknown, fmt.Errorf("contacts: invalid trust level %q", s)
	}
}

func (t TrustLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TrustLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseTrustLevel(s)
	if err != nil {
		return err
	}
	*t = level
	return nil
}

// Contact is one entry in a Store.
type Contact struct {
	AgentID    identity.AgentId `json:"agent_id"`
	TrustLevel TrustLevel       `json:"trust_level"`
	Label      string           `json:"label,omitempty"`
	AddedAt    int64            `json:"added_at"`
	LastSeen   *int64           `json:"last_seen,omitempty"`
}

// contactsFile is the on-disk JSON shape, a flat array rather than a map
// so that field order and readability survive hand-editing.
type contactsFile struct {
	Contacts []Contact `json:"contacts"`
}

// Store is a persistent, JSON-file-backed set of known contacts, keyed by
// agent ID. Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	contacts    map[identity.AgentId]Contact
	storagePath string

	now func() int64
}

// New creates a store backed by storagePath, loading existing contacts
// from disk on a best-effort basis (a missing or corrupt file yields an
// empty store rather than an error, matching original_source's own
// `let _ = store.load()`).
func New(storagePath string) *Store {
	s := &Store{
		contacts:    make(map[identity.AgentId]Contact),
		storagePath: storagePath,
		now:         func() int64 { return time.Now().Unix() },
	}
	_ = s.load()
	return s
}

// Add inserts or replaces a contact and persists the store.
func (s *Store) Add(c Contact) error {
	s.mu.Lock()
	s.contacts[c.AgentID] = c
	s.mu.Unlock()
	return s.save()
}

// Remove deletes a contact by agent ID, returning it if it existed.
func (s *Store) Remove(agentID identity.AgentId) (Contact, bool, error) {
	s.mu.Lock()
	c, ok := s.contacts[agentID]
	if ok {
		delete(s.contacts, agentID)
	}
	s.mu.Unlock()
	if !ok {
		return Contact{}, false, nil
	}
	return c, true, s.save()
}

// SetTrust sets the trust level for agentID, creating a new contact entry
// at the current time if one doesn't already exist.
func (s *Store) SetTrust(agentID identity.AgentId, level TrustLevel) error {
	s.mu.Lock()
	c, ok := s.contacts[agentID]
	if !ok {
		c = Contact{AgentID: agentID, AddedAt: s.now()}
	}
	c.TrustLevel = level
	s.contacts[agentID] = c
	s.mu.Unlock()
	return s.save()
}

// Get returns the contact for agentID, if present.
func (s *Store) Get(agentID identity.AgentId) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[agentID]
	return c, ok
}

// List returns every known contact, in no particular order.
func (s *Store) List() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	return out
}

// IsTrusted reports whether agentID is a Trusted contact.
func (s *Store) IsTrusted(agentID identity.AgentId) bool {
	return s.TrustLevelOf(agentID) == Trusted
}

// IsBlocked reports whether agentID is a Blocked contact.
func (s *Store) IsBlocked(agentID identity.AgentId) bool {
	return s.TrustLevelOf(agentID) == Blocked
}

// TrustLevelOf returns agentID's trust level, defaulting to Unknown for
// agents with no contact entry.
func (s *Store) TrustLevelOf(agentID identity.AgentId) TrustLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[agentID]
	if !ok {
		return Unknown
	}
	return c.TrustLevel
}

// Touch updates agentID's last-seen timestamp to now, if the contact
// exists. A no-op for unknown agents.
func (s *Store) Touch(agentID identity.AgentId) error {
	s.mu.Lock()
	c, ok := s.contacts[agentID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	c.LastSeen = &now
	s.contacts[agentID] = c
	s.mu.Unlock()
	return s.save()
}

// StoragePath returns the file path this store persists to.
func (s *Store) StoragePath() string { return s.storagePath }

// save writes the store to disk atomically: write to a .tmp sibling, then
// rename over the final path (matching persistence.FileBackend's
// checkpoint pattern and original_source's own write-then-rename).
func (s *Store) save() error {
	s.mu.RLock()
	file := contactsFile{Contacts: make([]Contact, 0, len(s.contacts))}
	for _, c := range s.contacts {
		file.Contacts = append(file.Contacts, c)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("contacts: marshal: %w", err)
	}

	if dir := filepath.Dir(s.storagePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("contacts: create directory: %w", err)
		}
	}

	tmp := s.storagePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("contacts: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.storagePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("contacts: rename temp file: %w", err)
	}
	return nil
}

// load populates the store from disk. A missing file is not an error.
func (s *Store) load() error {
	data, err := os.ReadFile(s.storagePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("contacts: read: %w", err)
	}

	var file contactsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("contacts: unmarshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range file.Contacts {
		s.contacts[c.AgentID] = c
	}
	return nil
}
