// Package repository persists analysis results and notification history on
// top of the document store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lmcosta/snapsight/internal/docstore"
	"github.com/lmcosta/snapsight/internal/model"
)

const resultsCollection = "analysis_results"

var (
	// ErrNotFound is returned when a result id does not exist.
	ErrNotFound = docstore.ErrNotFound
	// ErrOffsetOutOfRange is returned when limit+offset would exceed the
	// store's single-scan fetch bound (docstore.MaxScan). Offsets past that
	// bound are unsupported rather than silently truncated.
	ErrOffsetOutOfRange = errors.New("offset exceeds scan bound")
)

const (
	defaultListLimit   = 20
	defaultSearchLimit = 10
)

// ResultRepository stores one immutable document per processed image.
type ResultRepository struct {
	store docstore.Store
}

// NewResultRepository constructs a repository over the given store.
func NewResultRepository(store docstore.Store) *ResultRepository {
	return &ResultRepository{store: store}
}

// Create assigns a fresh id and write timestamp, computes the stored
// counters, and writes the whole record in a single put. The input is not
// mutated; the persisted record is returned. Ids are never reused, so an
// existing document is never overwritten.
func (r *ResultRepository) Create(ctx context.Context, fileName string, res *model.AnalysisResult) (*model.AnalysisResult, error) {
	rec := *res
	rec.ID = uuid.NewString()
	rec.FileName = fileName
	rec.ProcessedAt = time.Now().UTC()
	rec.Status = model.StatusProcessed
	rec.TotalLabels = len(rec.Labels)
	rec.TotalTexts = len(rec.TextFragments)
	rec.TotalFaces = len(rec.Faces)

	data, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := r.store.Insert(ctx, resultsCollection, rec.ID, data, rec.ProcessedAt); err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}
	return &rec, nil
}

// Get returns a stored result by id.
func (r *ResultRepository) Get(ctx context.Context, id string) (*model.AnalysisResult, error) {
	data, err := r.store.Get(ctx, resultsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	var rec model.AnalysisResult
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &rec, nil
}

// List returns up to limit results newest-first, skipping the first offset.
// The store only supports a first-N scan, so the offset is implemented by
// over-fetching limit+offset and discarding; limit+offset beyond
// docstore.MaxScan returns ErrOffsetOutOfRange.
func (r *ResultRepository) List(ctx context.Context, limit, offset int) ([]*model.AnalysisResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > docstore.MaxScan {
		limit = docstore.MaxScan
	}
	if offset < 0 {
		offset = 0
	}
	fetch := limit + offset
	if fetch > docstore.MaxScan {
		return nil, ErrOffsetOutOfRange
	}
	entries, err := r.store.Scan(ctx, resultsCollection, fetch)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if offset >= len(entries) {
		return []*model.AnalysisResult{}, nil
	}
	return decodeEntries(entries[offset:])
}

// SearchByName matches file names containing the substring, ignoring case.
// The store has no case-insensitive substring query, so this filters a
// bounded scan of the docstore.MaxScan most recent records client-side and
// stops once limit matches are found. Results are biased toward recent
// records; older matches beyond the scan bound are missed.
func (r *ResultRepository) SearchByName(ctx context.Context, substring string, limit int) ([]*model.AnalysisResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	needle := strings.ToLower(substring)
	entries, err := r.store.Scan(ctx, resultsCollection, docstore.MaxScan)
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}
	matches := make([]*model.AnalysisResult, 0, limit)
	for _, e := range entries {
		var rec model.AnalysisResult
		if err := json.Unmarshal(e.Data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal result %s: %w", e.ID, err)
		}
		if !strings.Contains(strings.ToLower(rec.FileName), needle) {
			continue
		}
		matches = append(matches, &rec)
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// Delete removes a result. Deleting a nonexistent id is not an error.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, resultsCollection, id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// DeleteAll removes every result and returns how many were deleted before
// any failure. Not transactional: a failure partway leaves the collection
// partially emptied.
func (r *ResultRepository) DeleteAll(ctx context.Context) (int, error) {
	deleted := 0
	for {
		entries, err := r.store.Scan(ctx, resultsCollection, docstore.MaxScan)
		if err != nil {
			return deleted, fmt.Errorf("scan results: %w", err)
		}
		if len(entries) == 0 {
			return deleted, nil
		}
		for _, e := range entries {
			if err := r.store.Delete(ctx, resultsCollection, e.ID); err != nil {
				return deleted, fmt.Errorf("delete result %s: %w", e.ID, err)
			}
			deleted++
		}
	}
}

func decodeEntries(entries []docstore.Entry) ([]*model.AnalysisResult, error) {
	out := make([]*model.AnalysisResult, 0, len(entries))
	for _, e := range entries {
		var rec model.AnalysisResult
		if err := json.Unmarshal(e.Data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal result %s: %w", e.ID, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
