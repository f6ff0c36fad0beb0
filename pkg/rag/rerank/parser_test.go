package rerank

import (
	"testing"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownKeys(keys ...entity.ChunkKey) map[entity.ChunkKey]bool {
	m := make(map[entity.ChunkKey]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func TestParseRankingResponse_CleanObject(t *testing.T) {
	known := knownKeys(
		entity.ChunkKey{DocId: "guide", ChunkId: 0},
		entity.ChunkKey{DocId: "guide", ChunkId: 1},
	)

	raw := `{"ranking":[{"doc_id":"guide","chunk_id":1,"score":0.9},{"doc_id":"guide","chunk_id":0,"score":0.4}]}`
	res := ParseRankingResponse(raw, known)

	require.Equal(t, FullyParsed, res.Status)
	assert.Equal(t, 0.9, res.Scores[entity.ChunkKey{DocId: "guide", ChunkId: 1}])
	assert.Equal(t, 0.4, res.Scores[entity.ChunkKey{DocId: "guide", ChunkId: 0}])
}

func TestParseRankingResponse_ProseWrappedWithFence(t *testing.T) {
	known := knownKeys(entity.ChunkKey{DocId: "a", ChunkId: 0})

	raw := "Sure, here is the ranking you asked for:\n```json\n" +
		`{"ranking":[{"doc_id":"a","chunk_id":0,"score":0.7}]}` +
		"\n```\nLet me know if you need anything else."
	res := ParseRankingResponse(raw, known)

	require.Equal(t, FullyParsed, res.Status)
	assert.Equal(t, 0.7, res.Scores[entity.ChunkKey{DocId: "a", ChunkId: 0}])
}

func TestParseRankingResponse_BareArray(t *testing.T) {
	known := knownKeys(entity.ChunkKey{DocId: "a", ChunkId: 2})

	res := ParseRankingResponse(`[{"doc_id":"a","chunk_id":2,"score":1}]`, known)

	require.Equal(t, FullyParsed, res.Status)
	assert.Equal(t, 1.0, res.Scores[entity.ChunkKey{DocId: "a", ChunkId: 2}])
}

func TestParseRankingResponse_Garbage(t *testing.T) {
	known := knownKeys(entity.ChunkKey{DocId: "a", ChunkId: 0})

	for _, raw := range []string{
		"",
		"I cannot rank these passages.",
		"{not json at all",
		`{"ranking": "oops"}`,
		`{"ranking": []}`,
	} {
		res := ParseRankingResponse(raw, known)
		assert.Equal(t, Unparseable, res.Status, "raw=%q", raw)
		assert.Empty(t, res.Scores)
	}
}

func TestParseRankingResponse_PartialList(t *testing.T) {
	known := knownKeys(
		entity.ChunkKey{DocId: "a", ChunkId: 0},
		entity.ChunkKey{DocId: "a", ChunkId: 1},
		entity.ChunkKey{DocId: "b", ChunkId: 0},
	)

	res := ParseRankingResponse(`{"ranking":[{"doc_id":"b","chunk_id":0,"score":0.5}]}`, known)

	require.Equal(t, PartiallyParsed, res.Status)
	require.Len(t, res.Scores, 1)
	assert.Equal(t, 0.5, res.Scores[entity.ChunkKey{DocId: "b", ChunkId: 0}])
}

func TestParseRankingResponse_DropsFabricatedAndMalformedEntries(t *testing.T) {
	known := knownKeys(entity.ChunkKey{DocId: "a", ChunkId: 0})

	raw := `{"ranking":[
		{"doc_id":"made-up","chunk_id":99,"score":1.0},
		{"doc_id":"a","score":0.8},
		{"doc_id":"a","chunk_id":0,"score":"high"},
		{"doc_id":"a","chunk_id":0,"score":0.6},
		{"doc_id":"a","chunk_id":0,"score":0.1}
	]}`
	res := ParseRankingResponse(raw, known)

	require.Equal(t, FullyParsed, res.Status)
	require.Len(t, res.Scores, 1)
	// first usable entry for a duplicated key wins
	assert.Equal(t, 0.6, res.Scores[entity.ChunkKey{DocId: "a", ChunkId: 0}])
}
