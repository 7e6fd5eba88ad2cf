package frontier

import "worldloom/internal/engine"

// Eras returns the frontier's ages in order. The last runs until the end
// of the run.
func Eras() []engine.Era {
	return []engine.Era{
		{
			ID:       "age_of_expansion",
			Subtype:  "expansion",
			Name:     "Age of Expansion",
			Duration: 60,
			TemplateWeights: map[string]float64{
				"colony_founding":  2,
				"settler_arrival":  1.5,
				"faction_splinter": 0.5,
			},
			ActionWeights: map[string]float64{
				"declare_war":     0.5,
				"establish_trade": 1.5,
				"befriend":        1.5,
			},
		},
		{
			ID:       "age_of_strife",
			Subtype:  "conflict",
			Name:     "Age of Strife",
			Duration: 60,
			TemplateWeights: map[string]float64{
				"faction_splinter": 2,
				"hero_emergence":   2,
				"colony_founding":  0.5,
			},
			ActionWeights: map[string]float64{
				"declare_war":    2,
				"assassinate":    1.5,
				"betray_ally":    1.5,
				"forge_alliance": 1.5,
				"start_feud":     1.5,
			},
		},
		{
			ID:       "age_of_wonders",
			Subtype:  "innovation",
			Name:     "Age of Wonders",
			Duration: 60,
			TemplateWeights: map[string]float64{
				"ability_discovery": 2.5,
				"cult_formation":    1.5,
			},
			ActionWeights: map[string]float64{
				"teach_ability":   2,
				"channel_power":   1.5,
				"take_apprentice": 1.5,
			},
		},
		{
			ID:       "age_of_rebuilding",
			Subtype:  "reconstruction",
			Name:     "Age of Rebuilding",
			Duration: 60,
			TemplateWeights: map[string]float64{
				"law_enactment":    2,
				"settler_arrival":  1.5,
				"faction_splinter": 0.5,
			},
			ActionWeights: map[string]float64{
				"establish_trade": 2,
				"befriend":        1.5,
				"declare_war":     0.5,
				"impose_embargo":  0.5,
			},
		},
	}
}
