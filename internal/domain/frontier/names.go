package frontier

import (
	"math/rand"
	"strings"
)

var cultures = []string{"highland", "coastal", "riverfolk", "steppe"}

// syllables per culture; the first set is the fallback.
var syllables = map[string][][]string{
	"highland":  {{"Bran", "Cal", "Dun", "Mor", "Tav", "Ewen"}, {"ach", "ric", "wen", "dra", "lin", "mor"}},
	"coastal":   {{"Ael", "Mar", "Sel", "Tor", "Vey", "Nes"}, {"isa", "en", "wyn", "ra", "ith", "os"}},
	"riverfolk": {{"Oda", "Per", "Lis", "Hal", "Ren", "Bek"}, {"ley", "ford", "mund", "ia", "ett", "a"}},
	"steppe":    {{"Kar", "Tem", "Ula", "Bat", "Sar", "Yes"}, {"gai", "ur", "khan", "tai", "ba", "un"}},
}

var (
	placeRoots    = []string{"Ash", "Cold", "Iron", "Salt", "Thorn", "Red", "Gull", "Stone", "Wolf", "Amber"}
	placeSuffixes = []string{"ford", "hollow", "reach", "watch", "haven", "crossing", "barrow", "mere"}
	abilityWords  = []string{"Ember", "Tide", "Veil", "Root", "Storm", "Bone", "Glass", "Star"}
	lawTopics     = []string{"Water Rights", "Road Tolls", "Hunting Seasons", "Grain Stores", "Oathkeeping", "Border Watch"}
)

var factionNouns = map[string][]string{
	"guild":   {"Guild", "Lodge", "Union"},
	"company": {"Company", "Venture", "Charter"},
	"cult":    {"Circle", "Covenant", "Choir"},
	"warband": {"Riders", "Blades", "Host"},
	"crown":   {"Crown", "Throne", "Regency"},
}

var abilityForms = map[string][]string{
	"spell": {"Ward", "Call", "Binding"},
	"craft": {"Forging", "Weave", "Tempering"},
	"rite":  {"Vigil", "Rite", "Offering"},
}

func pick(r *rand.Rand, options []string) string {
	return options[r.Intn(len(options))]
}

func randomCulture(r *rand.Rand) string {
	return pick(r, cultures)
}

func personName(r *rand.Rand, culture string) string {
	parts, ok := syllables[culture]
	if !ok {
		parts = syllables["highland"]
	}
	return pick(r, parts[0]) + pick(r, parts[1])
}

func placeName(r *rand.Rand) string {
	return pick(r, placeRoots) + pick(r, placeSuffixes)
}

func factionName(r *rand.Rand, subtype, place string) string {
	nouns, ok := factionNouns[subtype]
	if !ok {
		nouns = factionNouns["guild"]
	}
	if place == "" {
		place = pick(r, placeRoots)
	}
	return "The " + place + " " + pick(r, nouns)
}

func abilityName(r *rand.Rand, subtype string) string {
	forms, ok := abilityForms[subtype]
	if !ok {
		forms = abilityForms["spell"]
	}
	return pick(r, abilityWords) + " " + pick(r, forms)
}

func lawName(r *rand.Rand, subtype string) string {
	return strings.ToUpper(subtype[:1]) + subtype[1:] + " on " + pick(r, lawTopics)
}
