package rerank

import (
	"encoding/json"
	"strings"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
)

// ParseStatus tags the outcome of parsing a ranking response. The scorer's
// output is schema-less in practice, so every outcome is a value, never an
// error.
type ParseStatus int

const (
	FullyParsed ParseStatus = iota
	PartiallyParsed
	Unparseable
)

// ParseResult carries whatever usable scores survived parsing.
type ParseResult struct {
	Status ParseStatus
	Scores map[entity.ChunkKey]float64
}

// ParseRankingResponse extracts `{"ranking":[{doc_id, chunk_id, score}]}`
// from a model response that may wrap the JSON in prose, truncate the list,
// or mangle individual entries. Malformed entries and unknown chunk keys are
// dropped one by one; only a response with zero usable scores is
// Unparseable.
func ParseRankingResponse(raw string, known map[entity.ChunkKey]bool) ParseResult {
	entries := extractEntries(raw)
	if entries == nil {
		return ParseResult{Status: Unparseable}
	}

	scores := make(map[entity.ChunkKey]float64)
	for _, e := range entries {
		key, score, ok := parseEntry(e)
		if !ok {
			continue
		}
		if !known[key] {
			// Fabricated chunk identifier; never let it into the ranking.
			continue
		}
		if _, dup := scores[key]; dup {
			continue
		}
		scores[key] = score
	}

	switch {
	case len(scores) == 0:
		return ParseResult{Status: Unparseable}
	case len(scores) < len(known):
		return ParseResult{Status: PartiallyParsed, Scores: scores}
	default:
		return ParseResult{Status: FullyParsed, Scores: scores}
	}
}

// extractEntries locates the ranking list inside the raw response. It accepts
// a {"ranking": [...]} object, a bare JSON array, or either of those wrapped
// in surrounding prose (including markdown fences).
func extractEntries(raw string) []json.RawMessage {
	raw = strings.TrimSpace(raw)

	// Object form first: widest slice between the first '{' and last '}'.
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			var wrapper struct {
				Ranking []json.RawMessage `json:"ranking"`
			}
			if err := json.Unmarshal([]byte(raw[start:end+1]), &wrapper); err == nil && wrapper.Ranking != nil {
				return wrapper.Ranking
			}
		}
	}

	// Bare array form.
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			var entries []json.RawMessage
			if err := json.Unmarshal([]byte(raw[start:end+1]), &entries); err == nil {
				return entries
			}
		}
	}

	return nil
}

// parseEntry validates a single ranking entry. Non-numeric scores or missing
// identifiers disqualify only that entry.
func parseEntry(raw json.RawMessage) (entity.ChunkKey, float64, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.ChunkKey{}, 0, false
	}

	var docId string
	if err := json.Unmarshal(fields["doc_id"], &docId); err != nil || docId == "" {
		return entity.ChunkKey{}, 0, false
	}

	var chunkId int
	if err := json.Unmarshal(fields["chunk_id"], &chunkId); err != nil {
		return entity.ChunkKey{}, 0, false
	}

	var score float64
	if err := json.Unmarshal(fields["score"], &score); err != nil {
		return entity.ChunkKey{}, 0, false
	}

	return entity.ChunkKey{DocId: docId, ChunkId: chunkId}, score, true
}
