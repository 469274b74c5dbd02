// Package history persists completed reviews per user and reads back the
// most recent ones.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/store"
)

// Limit is the maximum number of records List returns.
const Limit = 20

// orderField is the record field the indexed query orders by.
const orderField = "date"

// ErrPersistence wraps every Save failure.
var ErrPersistence = errors.New("history not recorded")

// Outcome distinguishes an empty history from a failed read.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeEmpty  Outcome = "empty"
	OutcomeFailed Outcome = "failed"
)

// ReadPath names the read that produced a ListResult.
type ReadPath string

const (
	PathIndexed    ReadPath = "indexed"
	PathUnindexed  ReadPath = "unindexed"
	PathLastResort ReadPath = "last_resort"
	PathNone       ReadPath = "none"
)

// ListResult is the detailed outcome of Fetch.
type ListResult struct {
	Records []models.ReviewRecord
	Outcome Outcome
	Path    ReadPath
	Err     error
}

// Observer receives one call per read and per save.
type Observer interface {
	ObserveHistoryRead(path string, outcome string)
	ObserveHistorySave(ok bool)
}

// Store reads and writes review history in a document store.
type Store struct {
	docs     store.Store
	logger   *slog.Logger
	observer Observer
}

// New creates a history Store. logger and obs may be nil.
func New(docs store.Store, logger *slog.Logger, obs Observer) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{docs: docs, logger: logger.With("system", "history"), observer: obs}
}

// SanitizeKey replaces the characters the document store forbids in a
// path segment with "_".
func SanitizeKey(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '#', '$', '[', ']':
			return '_'
		}
		return r
	}, id)
}

func collectionPath(uid string) string {
	return "users/" + uid + "/reviews"
}

// Save writes rec under its sanitized id, overwriting any record already
// stored there. The stored body keeps the original id. Concurrent saves
// under the same id are last-write-wins.
func (s *Store) Save(ctx context.Context, uid string, rec models.ReviewRecord) error {
	err := s.save(ctx, uid, rec)
	if s.observer != nil {
		s.observer.ObserveHistorySave(err == nil)
	}
	return err
}

func (s *Store) save(ctx context.Context, uid string, rec models.ReviewRecord) error {
	if uid == "" {
		return fmt.Errorf("%w: no user", ErrPersistence)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record has no id", ErrPersistence)
	}
	p := collectionPath(uid) + "/" + SanitizeKey(rec.ID)
	if err := s.docs.Set(ctx, p, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// List returns up to Limit records, newest first. Read failures are
// swallowed and yield an empty list.
func (s *Store) List(ctx context.Context, uid string) []models.ReviewRecord {
	res := s.Fetch(ctx, uid)
	if res.Records == nil {
		return []models.ReviewRecord{}
	}
	return res.Records
}

// Fetch reads history through the indexed query, falling back to an
// unindexed read of the same path when the query fails, and to one more
// bare read when the whole retrieval fails.
func (s *Store) Fetch(ctx context.Context, uid string) ListResult {
	res := s.fetch(ctx, uid)
	if res.Err != nil {
		s.logger.Warn("history read failed", "uid", uid, "path", res.Path, "error", res.Err)
	}
	if s.observer != nil {
		s.observer.ObserveHistoryRead(string(res.Path), string(res.Outcome))
	}
	return res
}

func (s *Store) fetch(ctx context.Context, uid string) ListResult {
	if uid == "" {
		return ListResult{Outcome: OutcomeFailed, Path: PathNone, Err: errors.New("no user")}
	}
	p := collectionPath(uid)

	recs, path, err := s.retrieve(ctx, p)
	if err == nil {
		return result(recs, path)
	}

	recs, lastErr := s.read(ctx, p)
	if lastErr == nil {
		return result(recs, PathLastResort)
	}
	return ListResult{
		Records: []models.ReviewRecord{},
		Outcome: OutcomeFailed,
		Path:    PathNone,
		Err:     errors.Join(err, lastErr),
	}
}

// retrieve runs the indexed query and, if it fails, the unindexed read.
func (s *Store) retrieve(ctx context.Context, p string) ([]models.ReviewRecord, ReadPath, error) {
	snap, err := s.docs.Query(ctx, p, store.Query{OrderByChild: orderField, LimitToLast: Limit})
	if err == nil {
		return normalize(snap), PathIndexed, nil
	}
	s.logger.Debug("indexed history query failed, reading unindexed", "path", p, "error", err)

	recs, err := s.read(ctx, p)
	if err != nil {
		return nil, PathUnindexed, err
	}
	return recs, PathUnindexed, nil
}

func (s *Store) read(ctx context.Context, p string) ([]models.ReviewRecord, error) {
	snap, err := s.docs.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	return normalize(snap), nil
}

func result(recs []models.ReviewRecord, path ReadPath) ListResult {
	outcome := OutcomeOK
	if len(recs) == 0 {
		outcome = OutcomeEmpty
	}
	return ListResult{Records: recs, Outcome: outcome, Path: path}
}

// normalize decodes children, drops incomplete or duplicate records and
// returns at most Limit of them, newest first. Records whose date does not
// parse sort after all others.
func normalize(snap store.Snapshot) []models.ReviewRecord {
	type dated struct {
		rec models.ReviewRecord
		at  time.Time
		ok  bool
	}

	items := make([]dated, 0, len(snap.Children))
	for _, c := range snap.Children {
		var rec models.ReviewRecord
		if err := json.Unmarshal(c.Value, &rec); err != nil {
			continue
		}
		if rec.CreatedAt == "" || rec.SourceCode == "" || rec.Result == nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = c.Key
		}
		at, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
		items = append(items, dated{rec: rec, at: at, ok: err == nil})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.at.After(b.at)
	})

	seen := make(map[string]bool, len(items))
	out := make([]models.ReviewRecord, 0, min(len(items), Limit))
	for _, it := range items {
		if seen[it.rec.ID] {
			continue
		}
		seen[it.rec.ID] = true
		out = append(out, it.rec)
		if len(out) == Limit {
			break
		}
	}
	return out
}
