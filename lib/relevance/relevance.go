// Package relevance implements content-based filtering: each catalog
// item is scored against a user's preference profile as a weighted sum
// of independent sub-scores, then the candidate set is adjusted for
// category diversity and exploration noise before ranking.
package relevance

import (
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mediaswipe/recommender/models"
)

// Sub-score weights. The base weight of 1.0 keeps every candidate above
// zero so damping and noise always have something to work with.
const (
	weightGenre    = 3.0
	weightYear     = 1.5
	weightDuration = 1.0
	weightTags     = 2.0
	weightRating   = 2.0
	weightRecency  = 1.0
)

const (
	// neutralScore is used whenever a signal is missing: unknown year,
	// unrated item, profile without genres or tags.
	neutralScore = 0.5

	// genreMatchCap and tagMatchCap saturate the match fractions so a
	// handful of hits already counts as a full match.
	genreMatchCap = 3
	tagMatchCap   = 2

	// yearDecaySpan and durationDecaySpan control how fast fit decays
	// outside the preferred range: a full point of fit is lost per 10
	// years or per 60 minutes outside.
	yearDecaySpan     = 10.0
	durationDecaySpan = 60.0

	// recentYears is how long an item counts as fully recent.
	recentYears = 3

	// diversityDamping scales how strongly dominant categories are
	// suppressed relative to the largest category in the pool.
	diversityDamping = 0.2

	// noiseAmplitude bounds the uniform exploration noise applied per
	// item per ranking call.
	noiseAmplitude = 0.1

	// scoreThreshold drops candidates after adjustment.
	scoreThreshold = 0.5
)

// Scorer ranks catalog items against preference profiles. The noise
// source and clock are injectable so tests can pin both.
type Scorer struct {
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a Scorer seeded from the wall clock.
func New(logger *slog.Logger) *Scorer {
	return NewWithSource(logger, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewWithSource creates a Scorer with a fixed noise source and clock.
func NewWithSource(logger *slog.Logger, rng *rand.Rand, now func() time.Time) *Scorer {
	return &Scorer{logger: logger, rng: rng, now: now}
}

// Score computes the raw weighted relevance of a single candidate
// before diversity damping and noise. A nil profile scores with the
// documented neutral defaults, never an error.
func (s *Scorer) Score(c models.Content, pref *models.UserPreference) float64 {
	if pref == nil {
		pref = models.NewUserPreference("")
	}

	score := 1.0 // base
	score += weightGenre * genreScore(c, pref)
	score += weightYear * yearScore(c, pref)
	score += weightDuration * durationScore(c, pref)
	score += weightTags * tagScore(c, pref)
	score += weightRating * ratingScore(c)
	score += weightRecency * s.recencyScore(c)
	return score
}

// Rank scores the catalog against the profile, excluding anything the
// user already liked, and returns candidates in descending adjusted
// score order. Ties keep catalog order.
func (s *Scorer) Rank(catalog, liked []models.Content, pref *models.UserPreference) []models.Content {
	likedIDs := make(map[string]struct{}, len(liked))
	for _, c := range liked {
		likedIDs[c.ID] = struct{}{}
	}

	type candidate struct {
		content models.Content
		score   float64
	}
	candidates := make([]candidate, 0, len(catalog))
	categoryScore := make(map[string]float64)

	for _, c := range catalog {
		if _, ok := likedIDs[c.ID]; ok {
			continue
		}
		raw := s.Score(c, pref)
		candidates = append(candidates, candidate{content: c, score: raw})
		categoryScore[c.Category] += raw
	}

	if len(candidates) == 0 {
		return nil
	}

	var maxCategoryScore float64
	for _, total := range categoryScore {
		if total > maxCategoryScore {
			maxCategoryScore = total
		}
	}

	// Damp categories that dominate the pool, then perturb each score so
	// repeat calls do not return an identical list.
	kept := candidates[:0]
	for _, cand := range candidates {
		if maxCategoryScore > 0 {
			cand.score *= 1 - diversityDamping*(categoryScore[cand.content.Category]/maxCategoryScore)
		}
		cand.score *= 1 + s.noise()
		if cand.score < scoreThreshold {
			continue
		}
		kept = append(kept, cand)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	ranked := make([]models.Content, len(kept))
	for i, cand := range kept {
		ranked[i] = cand.content
	}
	return ranked
}

func (s *Scorer) noise() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64()*2 - 1) * noiseAmplitude
}

// genreScore is the saturated fraction of the candidate's genre tags
// present in the profile's preferred genres.
func genreScore(c models.Content, pref *models.UserPreference) float64 {
	if len(pref.PreferredGenres) == 0 {
		return neutralScore
	}

	preferred := make(map[string]struct{}, len(pref.PreferredGenres))
	for _, g := range pref.PreferredGenres {
		preferred[strings.ToLower(g)] = struct{}{}
	}

	matches := 0
	for _, g := range c.GenreList() {
		if _, ok := preferred[strings.ToLower(g)]; ok {
			matches++
		}
	}
	return capFraction(matches, genreMatchCap)
}

func yearScore(c models.Content, pref *models.UserPreference) float64 {
	year := c.Year()
	if year == 0 {
		return neutralScore
	}
	return rangeFit(float64(year), float64(pref.MinYear), float64(pref.MaxYear), yearDecaySpan)
}

func durationScore(c models.Content, pref *models.UserPreference) float64 {
	minutes := c.Runtime()
	if minutes == 0 {
		return neutralScore
	}

	maxDuration := pref.MaxDuration
	if maxDuration <= 0 {
		// Unbounded above: only the lower bound can miss.
		if minutes >= pref.MinDuration {
			return 1.0
		}
		return rangeFit(float64(minutes), float64(pref.MinDuration), float64(minutes), durationDecaySpan)
	}
	return rangeFit(float64(minutes), float64(pref.MinDuration), float64(maxDuration), durationDecaySpan)
}

// rangeFit returns 1.0 inside [lo,hi] and decays linearly to 0 at span
// distance outside it.
func rangeFit(v, lo, hi, span float64) float64 {
	var outside float64
	switch {
	case v < lo:
		outside = lo - v
	case v > hi:
		outside = v - hi
	default:
		return 1.0
	}

	fit := 1.0 - outside/span
	if fit < 0 {
		return 0
	}
	return fit
}

// tagScore is the saturated fraction of the profile's interest tags
// found as substrings of the candidate's title or description.
func tagScore(c models.Content, pref *models.UserPreference) float64 {
	if len(pref.InterestTags) == 0 {
		return neutralScore
	}

	haystack := strings.ToLower(c.Title + " " + c.Description)
	matches := 0
	for _, tag := range pref.InterestTags {
		if tag == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tag)) {
			matches++
		}
	}
	return capFraction(matches, tagMatchCap)
}

func ratingScore(c models.Content) float64 {
	if c.Rating == 0 {
		return neutralScore
	}
	score := c.Rating / 10
	if score > 1 {
		return 1
	}
	return score
}

func (s *Scorer) recencyScore(c models.Content) float64 {
	year := c.Year()
	if year == 0 {
		return neutralScore
	}

	yearsAgo := s.now().Year() - year
	if yearsAgo <= recentYears {
		return 1.0
	}

	score := 1.0 - 0.2*(float64(yearsAgo-recentYears)/5.0)
	if score < 0 {
		return 0
	}
	return score
}

func capFraction(matches, saturation int) float64 {
	f := float64(matches) / float64(saturation)
	if f > 1 {
		return 1
	}
	return f
}
