// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package facade

import (
	"context"
	"fmt"
	"strings"

	"github.com/resonata/resonata/internal/recommend"
)

// Analysis is the result of analyzing one user message.
type Analysis struct {
	Mood            string
	Valence         float64
	Arousal         float64
	Intensity       float64
	Confidence      float64
	ClarityScore    float64
	ShouldRecommend bool
	Response        string
	Entities        map[string][]string
}

// Analyzer extracts mood and intent from a user message. An external
// NLU service can replace the built-in lexicon analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, message string) (Analysis, error)
}

// moodLexicon maps trigger words to the mood they signal.
var moodLexicon = map[string]string{
	"happy": "happy", "great": "happy", "wonderful": "happy", "joy": "happy",
	"sad": "sad", "down": "sad", "blue": "sad", "cry": "sad", "miss": "sad",
	"energetic": "energetic", "pumped": "energetic", "workout": "energetic", "hyped": "energetic",
	"calm": "calm", "relax": "calm", "chill": "calm", "unwind": "calm", "peaceful": "calm",
	"angry": "angry", "furious": "angry", "mad": "angry", "frustrated": "angry",
	"anxious": "anxious", "nervous": "anxious", "worried": "anxious", "stress": "anxious",
	"romantic": "romantic", "love": "romantic", "date": "romantic",
	"melancholic": "melancholic", "nostalgic": "nostalgic", "memories": "nostalgic",
	"focus": "calm", "study": "calm", "concentrate": "calm", "work": "calm",
	"excited": "excited", "thrilled": "excited", "party": "excited",
	"content": "peaceful", "fine": "neutral", "okay": "neutral",
}

// genreLexicon maps genre words to canonical genre entities.
var genreLexicon = map[string]string{
	"rock": "rock", "jazz": "jazz", "pop": "pop", "classical": "classical",
	"metal": "metal", "hip-hop": "hip-hop", "hip hop": "hip-hop", "rap": "hip-hop",
	"electronic": "electronic", "edm": "electronic", "folk": "folk",
	"country": "country", "blues": "blues", "soul": "soul", "indie": "indie",
	"ambient": "ambient", "lofi": "lofi", "lo-fi": "lofi",
}

// musicIntentWords signal that the user wants recommendations even
// without an explicit mood.
var musicIntentWords = []string{
	"music", "song", "songs", "play", "playlist", "listen", "recommend", "track", "tracks",
}

// LexiconAnalyzer is a deterministic keyword-based analyzer. It is
// intentionally simple: the analyzer seam exists so a real NLU
// backend can replace it without touching the facade.
type LexiconAnalyzer struct{}

// NewLexiconAnalyzer returns the built-in analyzer.
func NewLexiconAnalyzer() *LexiconAnalyzer { return &LexiconAnalyzer{} }

// Analyze detects mood, valence/arousal, genre entities, and
// recommendation intent from the message text.
func (a *LexiconAnalyzer) Analyze(_ context.Context, message string) (Analysis, error) {
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '\n'
	})

	moodHits := make(map[string]int)
	for _, w := range words {
		if mood, ok := moodLexicon[w]; ok {
			moodHits[mood]++
		}
	}

	mood := ""
	best := 0
	for m, n := range moodHits {
		if n > best || (n == best && mood != "" && m < mood) {
			mood, best = m, n
		}
	}

	analysis := Analysis{Entities: map[string][]string{}}
	if mood != "" {
		analysis.Mood = mood
		if pos, ok := recommend.MoodCentroid(mood); ok {
			analysis.Valence = pos.Valence
			analysis.Arousal = pos.Arousal
		}
		// Confidence grows with hit count but saturates quickly.
		analysis.Confidence = recommend.ClampUnit(0.5 + 0.2*float64(best))
	} else {
		analysis.Confidence = 0.2
	}

	exclaims := strings.Count(message, "!")
	analysis.Intensity = recommend.ClampUnit(0.4 + 0.2*float64(exclaims))

	for phrase, genre := range genreLexicon {
		if strings.Contains(lower, phrase) {
			analysis.Entities["genre"] = appendUnique(analysis.Entities["genre"], genre)
		}
	}

	wantsMusic := false
	for _, w := range musicIntentWords {
		if strings.Contains(lower, w) {
			wantsMusic = true
			break
		}
	}
	analysis.ShouldRecommend = wantsMusic || (mood != "" && analysis.Confidence >= 0.5)

	// Clarity reflects how unambiguous the request is.
	clarity := analysis.Confidence
	if wantsMusic {
		clarity += 0.2
	}
	if len(moodHits) > 1 {
		clarity -= 0.15
	}
	analysis.ClarityScore = recommend.ClampUnit(clarity)

	analysis.Response = composeResponse(mood, wantsMusic)
	return analysis, nil
}

func composeResponse(mood string, wantsMusic bool) string {
	switch {
	case mood != "" && wantsMusic:
		return fmt.Sprintf("Sounds like you're feeling %s. Here's some music that might fit.", mood)
	case mood != "":
		return fmt.Sprintf("I hear you're feeling %s. Want me to pick some music for that?", mood)
	case wantsMusic:
		return "Happy to help with music. How are you feeling right now?"
	default:
		return "Tell me a bit more about your mood and I'll find something that fits."
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
