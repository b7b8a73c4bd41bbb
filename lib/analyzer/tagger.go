package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/mediaswipe/recommender/models"
)

// Tagger extracts a set of interest tags from a user's liked content.
// Implementations range from the keyword heuristic below to a real
// tagging model; the analyzer contract is the same either way.
type Tagger interface {
	Tags(ctx context.Context, liked []models.Content) ([]string, error)
}

// keywordTags maps title substrings to interest tags. Intentionally
// shallow: it catches the obvious themes and nothing else.
var keywordTags = map[string]string{
	"war":       "war",
	"battle":    "war",
	"soldier":   "war",
	"love":      "romance",
	"romance":   "romance",
	"wedding":   "romance",
	"detective": "detective",
	"murder":    "detective",
	"mystery":   "detective",
	"space":     "sci-fi",
	"galaxy":    "sci-fi",
	"robot":     "sci-fi",
	"dragon":    "fantasy",
	"magic":     "fantasy",
	"kingdom":   "fantasy",
	"zombie":    "horror",
	"haunted":   "horror",
}

// KeywordTagger derives tags by keyword containment over titles. It
// never fails.
type KeywordTagger struct{}

func (KeywordTagger) Tags(ctx context.Context, liked []models.Content) ([]string, error) {
	seen := make(map[string]struct{})
	for _, c := range liked {
		title := strings.ToLower(c.Title)
		for keyword, tag := range keywordTags {
			if strings.Contains(title, keyword) {
				seen[tag] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}
