// Package review holds drift reports awaiting disposition. Reports are
// files on disk, written atomically; only an explicit approve transitions
// evidence into the baseline store.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
)

// ErrNotFound is returned for unknown report IDs.
var ErrNotFound = errors.New("report not found")

// ErrResolved is returned when a disposition transition is attempted on a
// report that already left pending-review. Dispositions are final.
var ErrResolved = errors.New("report already resolved")

// validID matches alphanumeric, dash, underscore, and dot characters only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateID rejects IDs that could cause path traversal.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("report id must not be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("report id must not contain '..'")
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("report id contains invalid characters")
	}
	return nil
}

// Item is one report pending review together with the evidence records that
// would become the asset's next baseline contribution on approval.
type Item struct {
	Report  model.Report           `json:"report"`
	Records []model.EvidenceRecord `json:"records,omitempty"`
}

// Store manages report files on disk.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create report directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the default report store directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cacm-reports")
	}
	return filepath.Join(home, ".cacm", "reports")
}

// Put writes a new report item. Fails if the ID already exists: reports are
// immutable except for their disposition.
func (s *Store) Put(item Item) error {
	if err := validateID(item.Report.ID); err != nil {
		return fmt.Errorf("invalid report id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(item.Report.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("report %q already exists", item.Report.ID)
	}
	return s.writeAtomic(path, item)
}

// Get returns a report item by ID.
func (s *Store) Get(id string) (*Item, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid report id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// List returns all stored reports, newest comparison first.
func (s *Store) List() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []Item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		item, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Report.ComparedAt.After(items[j].Report.ComparedAt)
	})
	return items, nil
}

// transition moves a pending report to a final disposition with reviewer
// identity for audit. Any disposition other than pending-review is final.
func (s *Store) transition(id string, to model.Disposition, reviewer string) (*Item, error) {
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid report id: %w", err)
	}
	if reviewer == "" {
		return nil, fmt.Errorf("reviewer identity required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if item.Report.Disposition != model.DispositionPending {
		return nil, fmt.Errorf("report %q is %s: %w", id, item.Report.Disposition, ErrResolved)
	}

	now := time.Now().UTC()
	item.Report.Disposition = to
	item.Report.ReviewedBy = reviewer
	item.Report.ResolvedAt = &now

	if err := s.writeAtomic(s.path(id), *item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) read(id string) (*Item, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("report %q: %w", id, ErrNotFound)
		}
		return nil, err
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) writeAtomic(path string, item Item) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
