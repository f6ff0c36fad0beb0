package answer

import (
	"regexp"
	"strconv"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
)

// Citation ties a generated claim to a specific source chunk via the
// [doc_id#chunk_id] marker.
type Citation struct {
	DocId   string `json:"doc_id"`
	ChunkId int    `json:"chunk_id"`
}

// citationPattern matches [doc_id#chunk_id] markers. Doc ids cannot contain
// brackets or '#'; the ingest path enforces that by sanitizing file stems
// to [A-Za-z0-9._-].
var citationPattern = regexp.MustCompile(`\[([^\[\]#]+)#(\d+)\]`)

// ExtractCitations pulls the citation markers present in generated text,
// keeping only those that resolve to a chunk actually supplied as context.
// The result preserves first-occurrence order without duplicates. Zero
// citations is a valid outcome, not a failure.
func ExtractCitations(text string, context []*entity.DocumentChunk) []Citation {
	supplied := make(map[entity.ChunkKey]bool, len(context))
	for _, c := range context {
		supplied[c.Key()] = true
	}

	var citations []Citation
	seen := make(map[entity.ChunkKey]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		chunkId, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		key := entity.ChunkKey{DocId: match[1], ChunkId: chunkId}
		if !supplied[key] || seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, Citation{DocId: key.DocId, ChunkId: key.ChunkId})
	}
	return citations
}
