package longform

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
)

// Asker is the question-answering dependency, satisfied by the query service.
type Asker interface {
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error)
}

// DefaultSections is used when a compose request names no sections.
var DefaultSections = []string{"Overview", "Key Details", "Conclusion"}

// Writer assembles a multi-section markdown document by running one grounded
// question per section through the answering pipeline.
type Writer struct {
	asker Asker
	log   logger.ILogger
}

func NewWriter(asker Asker, log logger.ILogger) *Writer {
	return &Writer{asker: asker, log: log}
}

func (w *Writer) Compose(ctx context.Context, topic string, sections []string) (*dto.ComposeResponse, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if len(sections) == 0 {
		sections = DefaultSections
	}

	response := &dto.ComposeResponse{Topic: topic}
	var doc strings.Builder
	fmt.Fprintf(&doc, "# %s\n", topic)

	for _, title := range sections {
		question := fmt.Sprintf("Write the %q section of a document about: %s", title, topic)
		ans, err := w.asker.Ask(ctx, &dto.AskRequest{Question: question})
		if err != nil {
			return nil, fmt.Errorf("composing section %q: %w", title, err)
		}

		w.log.Debug("longform", "section composed", map[string]interface{}{
			"topic":     topic,
			"section":   title,
			"citations": len(ans.Citations),
		})

		response.Sections = append(response.Sections, dto.ComposedSection{
			Title:     title,
			Body:      ans.Answer,
			Citations: ans.Citations,
		})
		fmt.Fprintf(&doc, "\n## %s\n\n%s\n", title, ans.Answer)
	}

	response.Document = doc.String()
	return response, nil
}
