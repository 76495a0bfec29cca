package service

import (
	"log/slog"
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/state"
)

// cattleIndex implements sahilm/fuzzy.Source over the current snapshot
// for zero-allocation matching.
type cattleIndex struct {
	records []domain.Cattle
	keys    []string
}

func (ix cattleIndex) String(i int) string { return ix.keys[i] }
func (ix cattleIndex) Len() int            { return len(ix.keys) }

// SearchService filters the locally held cattle collection. It works
// entirely off the state store snapshot, so search keeps working
// offline against whatever data is on screen.
type SearchService struct {
	store  *state.Store
	logger *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(store *state.Store, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{store: store, logger: logger}
}

// Filter returns records whose tag number or breed fuzzy-matches the
// query, best matches first.
func (s *SearchService) Filter(query string) []domain.Cattle {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}

	ix := s.index()
	matches := sfuzzy.FindFrom(query, ix)

	out := make([]domain.Cattle, 0, len(matches))
	for _, m := range matches {
		out = append(out, ix.records[m.Index])
	}
	s.logger.Debug("filtered cattle", "query", query, "results", len(out))
	return out
}

// Rank orders records by normalized Levenshtein distance to the query,
// tolerating diacritics and case. Used for the "did you mean" path
// where Filter finds nothing.
func (s *SearchService) Rank(query string) []domain.Cattle {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	ix := s.index()
	ranks := lfuzzy.RankFindNormalizedFold(query, ix.keys)
	sort.Sort(ranks)

	out := make([]domain.Cattle, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, ix.records[r.OriginalIndex])
	}
	return out
}

func (s *SearchService) index() cattleIndex {
	records := s.store.Snapshot().Cattle
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = strings.ToLower(strings.TrimSpace(r.TagNumber + " " + r.Breed))
	}
	return cattleIndex{records: records, keys: keys}
}
