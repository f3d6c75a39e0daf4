package record

import (
	"slices"
	"sync"
)

// ChangeKind says what kind of mutation produced a Change.
type ChangeKind string

const (
	ChangeMerged  ChangeKind = "changed"
	ChangeCleared ChangeKind = "cleared"
)

// Change describes one store mutation. It is delivered to the change hook
// after the store lock has been released.
type Change struct {
	Kind    ChangeKind `json:"type"`
	URL     string     `json:"url,omitempty"`
	Epoch   uint64     `json:"epoch"`
	Version uint64     `json:"version"`
}

// Store maps canonical URLs to their latest merged FileRecord and owns the
// side tables ingestion needs: the redirect map, the set of script-tag URLs
// still waiting for their network response, and the imports-files /
// imported-by backlinks. Thread-safe via sync.RWMutex.
type Store struct {
	mu sync.RWMutex

	records         map[string]FileRecord
	redirects       map[string]string // from -> to
	redirectSources map[string]string // to -> first from
	pendingScripts  map[string]bool
	importsFiles    map[string][]string // initiator -> loaded urls
	importedBy      map[string][]string // url -> initiators

	epoch   uint64
	version uint64

	onChange func(Change)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOnChange registers fn to be called after every mutation.
func WithOnChange(fn func(Change)) StoreOption {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore returns an empty Store ready for use.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) reset() {
	s.records = make(map[string]FileRecord)
	s.redirects = make(map[string]string)
	s.redirectSources = make(map[string]string)
	s.pendingScripts = make(map[string]bool)
	s.importsFiles = make(map[string][]string)
	s.importedBy = make(map[string][]string)
}

// Merge applies p over the record stored for url, creating it if absent.
// ImportsFiles entries on p are appended to the backlink tables rather than
// replacing them.
func (s *Store) Merge(url string, p PartialRecord) FileRecord {
	s.mu.Lock()
	existing, ok := s.records[url]
	if !ok {
		existing = FileRecord{URL: url}
	}
	merged := p.Apply(existing)
	merged.URL = url
	merged.ImportsFiles = nil
	merged.ImportedBy = nil
	s.records[url] = merged
	for _, target := range p.ImportsFiles {
		s.linkLocked(url, target)
	}
	s.version++
	ch := Change{Kind: ChangeMerged, URL: url, Epoch: s.epoch, Version: s.version}
	out := s.withBacklinksLocked(merged)
	s.mu.Unlock()

	s.notify(ch)
	return out
}

// Get returns a copy of the record for url.
func (s *Store) Get(url string) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[url]
	if !ok {
		return FileRecord{}, false
	}
	return s.withBacklinksLocked(r), true
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a deep copy of every record together with the epoch and
// version it was taken at. The copy is safe to iterate while the store keeps
// changing.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		Records: make(map[string]FileRecord, len(s.records)),
		Epoch:   s.epoch,
		Version: s.version,
	}
	for url, r := range s.records {
		out.Records[url] = s.withBacklinksLocked(r)
	}
	return out
}

// Epoch returns the number of times the store has been cleared.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Clear drops every record and every side table.
func (s *Store) Clear() {
	s.mu.Lock()
	s.reset()
	s.epoch++
	s.version++
	ch := Change{Kind: ChangeCleared, Epoch: s.epoch, Version: s.version}
	s.mu.Unlock()

	s.notify(ch)
}

// Link records that initiator caused url to load.
func (s *Store) Link(initiator, url string) {
	if initiator == "" || initiator == url {
		return
	}
	s.mu.Lock()
	changed := s.linkLocked(initiator, url)
	var ch Change
	if changed {
		s.version++
		ch = Change{Kind: ChangeMerged, URL: initiator, Epoch: s.epoch, Version: s.version}
	}
	s.mu.Unlock()

	if changed {
		s.notify(ch)
	}
}

func (s *Store) linkLocked(initiator, url string) bool {
	if slices.Contains(s.importsFiles[initiator], url) {
		return false
	}
	s.importsFiles[initiator] = append(s.importsFiles[initiator], url)
	if !slices.Contains(s.importedBy[url], initiator) {
		s.importedBy[url] = append(s.importedBy[url], initiator)
	}
	return true
}

// NoteRedirect records an HTTP redirect from one URL to another.
func (s *Store) NoteRedirect(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
	if _, ok := s.redirectSources[to]; !ok {
		s.redirectSources[to] = from
	}
}

// RedirectSource returns the URL that redirected to to, if any.
func (s *Store) RedirectSource(to string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, ok := s.redirectSources[to]
	return from, ok
}

// MarkPendingScript remembers that url was seen as a <script src> and is
// waiting for its network response.
func (s *Store) MarkPendingScript(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingScripts[url] = true
}

// TakePendingScript reports whether url was waiting as a script tag and
// removes it from the pending set.
func (s *Store) TakePendingScript(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingScripts[url] {
		return false
	}
	delete(s.pendingScripts, url)
	return true
}

// withBacklinksLocked returns a copy of r with the backlink lists filled from
// the side tables. Callers must hold s.mu.
func (s *Store) withBacklinksLocked(r FileRecord) FileRecord {
	out := r.Clone()
	out.ImportsFiles = slices.Clone(s.importsFiles[r.URL])
	out.ImportedBy = slices.Clone(s.importedBy[r.URL])
	return out
}

func (s *Store) notify(ch Change) {
	if s.onChange != nil {
		s.onChange(ch)
	}
}
