// Package nlp defines the contracts exchanged with the language-understanding
// layer. The memory core treats these records as opaque payloads: it stores
// and returns them but never validates their internal shape.
package nlp

import (
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

// Classification is the output of intent classification on one inbound
// message.
type Classification struct {
	Intent     string         `json:"intent"`
	Entities   map[string]any `json:"entities,omitempty"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// Action is one proposed tool invocation inside a plan.
type Action struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Plan is a proposed course of action for a user request. Plans flagged
// RequiresConfirmation must be previewed to the user and acknowledged
// before execution.
type Plan struct {
	Intent               string         `json:"intent"`
	Entities             map[string]any `json:"entities,omitempty"`
	Actions              []Action       `json:"actions,omitempty"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Confidence           float64        `json:"confidence"`
	Reasoning            string         `json:"reasoning,omitempty"`
}

// Citation points an answer back at the memory item it was grounded on.
type Citation struct {
	MemoryID  string    `json:"memory_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Excerpt   string    `json:"excerpt,omitempty"`
}

// CitationsFromResults derives citations from ranked search results, using
// the first highlight of each result as the excerpt.
func CitationsFromResults(results []memory.SearchResult) []Citation {
	if len(results) == 0 {
		return nil
	}
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		c := Citation{
			MemoryID:  r.Item.ID,
			Title:     r.Item.Title,
			CreatedAt: r.Item.CreatedAt,
		}
		if len(r.Highlights) > 0 {
			c.Excerpt = r.Highlights[0]
		}
		citations = append(citations, c)
	}
	return citations
}
