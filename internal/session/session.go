// Package session holds import sessions between the upload, preview and
// commit steps.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("import session not found")

// DefaultTTL bounds how long an uncommitted session is kept.
const DefaultTTL = time.Hour

// State is the lifecycle position of a session.
type State string

const (
	StatePreview    State = "preview"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
)

// Record is one parsed row plus the user's preview decisions.
type Record struct {
	Index       int                     `json:"index"`
	Transaction model.ParsedTransaction `json:"transaction"`
	Selected    bool                    `json:"selected"`
	CategoryID  string                  `json:"categoryId,omitempty"`
	TagIDs      []string                `json:"tagIds,omitempty"`
	// AutoCategorized is set while CategoryID is still the matcher's pick.
	AutoCategorized bool   `json:"autoCategorized,omitempty"`
	Strategy        string `json:"strategy,omitempty"`
	// AlreadyImported is informational; commit re-checks against the store.
	AlreadyImported bool `json:"alreadyImported,omitempty"`
}

// Session is the transient state of one import.
type Session struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	Source       model.Source       `json:"source"`
	DetectMethod string             `json:"detectMethod,omitempty"`
	FileName     string             `json:"fileName"`
	ArchiveURI   string             `json:"archiveUri,omitempty"`
	AccountID    string             `json:"accountId,omitempty"`
	AccountInfo  *model.AccountInfo `json:"accountInfo,omitempty"`
	Records      []Record           `json:"records"`
	// AccountMappings maps QIF account names to destination account ids.
	AccountMappings map[string]string `json:"accountMappings,omitempty"`
	State           State             `json:"state"`
	CreatedAt       time.Time         `json:"createdAt"`
	ExpiresAt       time.Time         `json:"expiresAt"`
	Summary         *model.Summary    `json:"summary,omitempty"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	cp := *s
	if s.AccountInfo != nil {
		info := *s.AccountInfo
		info.Accounts = append([]string(nil), s.AccountInfo.Accounts...)
		cp.AccountInfo = &info
	}
	cp.Records = make([]Record, len(s.Records))
	for i, r := range s.Records {
		r.TagIDs = append([]string(nil), r.TagIDs...)
		cp.Records[i] = r
	}
	if s.AccountMappings != nil {
		cp.AccountMappings = make(map[string]string, len(s.AccountMappings))
		for k, v := range s.AccountMappings {
			cp.AccountMappings[k] = v
		}
	}
	if s.Summary != nil {
		sum := *s.Summary
		cp.Summary = &sum
	}
	return &cp
}

// SelectedCount returns how many records will be committed.
func (s *Session) SelectedCount() int {
	n := 0
	for _, r := range s.Records {
		if r.Selected {
			n++
		}
	}
	return n
}

// AccountNames lists the account names a multi-account import can map:
// accounts declared by the file in file order, then accounts only seen on
// records, then transfer counterparts.
func (s *Session) AccountNames() []string {
	seen := make(map[string]bool)
	var out []string
	if s.AccountInfo != nil {
		for _, n := range s.AccountInfo.Accounts {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	collect := func(name func(model.ParsedTransaction) string) {
		var extra []string
		for _, r := range s.Records {
			if n := name(r.Transaction); n != "" && !seen[n] {
				seen[n] = true
				extra = append(extra, n)
			}
		}
		sort.Strings(extra)
		out = append(out, extra...)
	}
	collect(func(t model.ParsedTransaction) string { return t.Account })
	collect(func(t model.ParsedTransaction) string {
		if !t.IsTransfer {
			return ""
		}
		return t.TransferAccount
	})
	return out
}

// Registry is an in-process session table with expiry.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

// NewRegistry creates a registry. A non-positive ttl uses DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Put stores a new session, assigning its ID and timestamps.
func (r *Registry) Put(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := r.now()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(r.ttl)
	if s.State == "" {
		s.State = StatePreview
	}
	r.sessions[s.ID] = s.Clone()
	return s
}

// Get returns a copy of the session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Update applies fn to the stored session under the registry lock and
// returns a copy of the result. If fn fails nothing changes.
func (r *Registry) Update(id string, fn func(*Session) error) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	work := s.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	work.ExpiresAt = r.now().Add(r.ttl)
	r.sessions[id] = work
	return work.Clone(), nil
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getLocked(id); err != nil {
		return err
	}
	delete(r.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.sessions)
}

func (r *Registry) getLocked(id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !r.now().Before(s.ExpiresAt) {
		delete(r.sessions, id)
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) sweepLocked() int {
	now := r.now()
	n := 0
	for id, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
