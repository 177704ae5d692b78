// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"fmt"
	"sort"
	"strings"
)

// componentPhrases maps each scoring component to its explanation
// fragment.
var componentPhrases = map[Feature]string{
	FeatureMoodMatch:          "matches your mood",
	FeatureEmotionalResonance: "resonates emotionally",
	FeatureValenceAlignment:   "fits how you're feeling",
	FeatureEnergyAlignment:    "matches your energy",
	FeatureTempoComfort:       "has a comfortable tempo",
	FeaturePopularity:         "is widely loved",
}

// explainSong builds a one-sentence explanation from the two strongest
// post-modifier components, naming the target mood when present.
func explainSong(s ScoredSong, targetMood string) string {
	type comp struct {
		feature Feature
		value   float64
	}
	comps := make([]comp, 0, len(s.Components))
	for f, v := range s.Components {
		if _, ok := componentPhrases[f]; ok {
			comps = append(comps, comp{f, v})
		}
	}
	sort.Slice(comps, func(i, j int) bool {
		if comps[i].value != comps[j].value {
			return comps[i].value > comps[j].value
		}
		return comps[i].feature < comps[j].feature
	})

	phrases := make([]string, 0, 2)
	for i := 0; i < len(comps) && i < 2; i++ {
		phrases = append(phrases, componentPhrases[comps[i].feature])
	}
	if len(phrases) == 0 {
		phrases = append(phrases, "suits this moment")
	}

	reason := strings.Join(phrases, " and ")
	if targetMood != "" {
		return fmt.Sprintf("This song %s for your %s mood.", reason, targetMood)
	}
	return fmt.Sprintf("This song %s.", reason)
}
