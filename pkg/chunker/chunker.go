package chunker

import (
	"strings"
)

// Chunker splits normalized document text into overlapping, token-bounded
// chunks. Tokens are whitespace-delimited words. Identical input and
// parameters always produce identical boundaries, which is what makes
// re-ingest idempotent at the store level.
type Chunker struct {
	MaxTokens     int
	OverlapTokens int
}

func New(maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 220
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = 0
	}
	return &Chunker{
		MaxTokens:     maxTokens,
		OverlapTokens: overlapTokens,
	}
}

// SplitSentences segments text on sentence-ending punctuation followed by
// whitespace. Carriage returns are treated as spaces.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r", " ")
	runes := []rune(text)

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Sentence ends only when punctuation is followed by whitespace or EOF.
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f'
}

// Split accumulates sentences greedily up to MaxTokens, emitting a chunk and
// seeding the next buffer with the trailing OverlapTokens tokens of the chunk
// just emitted. A single sentence longer than MaxTokens is hard-split at the
// token boundary so the budget is never violated. Empty or whitespace-only
// input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var buf []string // token buffer for the chunk being assembled
	fresh := 0       // tokens added since the last emit (overlap seed excluded)

	emit := func() {
		chunks = append(chunks, strings.Join(buf, " "))
		// Seed the next buffer with the trailing overlap of the emitted chunk.
		keep := c.OverlapTokens
		if keep > len(buf) {
			keep = len(buf)
		}
		buf = append([]string(nil), buf[len(buf)-keep:]...)
		fresh = 0
	}

	for _, sentence := range SplitSentences(text) {
		tokens := strings.Fields(sentence)

		if len(tokens) > c.MaxTokens {
			// Oversized sentence: fill the buffer token by token, emitting
			// whenever the budget is reached.
			for len(tokens) > 0 {
				space := c.MaxTokens - len(buf)
				if space <= 0 {
					emit()
					continue
				}
				take := space
				if take > len(tokens) {
					take = len(tokens)
				}
				buf = append(buf, tokens[:take]...)
				fresh += take
				tokens = tokens[take:]
				if len(buf) == c.MaxTokens {
					emit()
				}
			}
			continue
		}

		if len(buf) > 0 && len(buf)+len(tokens) > c.MaxTokens {
			emit()
			// A long sentence right after a full overlap seed could still
			// blow the budget; shrink the seed from the front until it fits.
			if over := len(buf) + len(tokens) - c.MaxTokens; over > 0 {
				buf = buf[over:]
			}
		}
		buf = append(buf, tokens...)
		fresh += len(tokens)
	}

	// Flush the remainder, but never a buffer that is nothing but overlap seed.
	if fresh > 0 {
		chunks = append(chunks, strings.Join(buf, " "))
	}
	return chunks
}

// TokenCount reports the whitespace token count used by the chunk budget.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}
