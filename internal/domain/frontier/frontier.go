// Package frontier is the built-in setting: settlers, factions and
// hedge magic on an untamed frontier.
package frontier

import (
	_ "embed"
	"fmt"

	"worldloom/internal/config"
	"worldloom/internal/engine"
	"worldloom/internal/lifecycle"
	"worldloom/internal/systems"
	"worldloom/internal/world"
)

const Name = "frontier"

// SchemaYAML is the default schema, written by `worldloom init`.
//
//go:embed schema.yaml
var SchemaYAML []byte

// Entity and relationship kinds the content refers to by name.
const (
	kindNPC        = "npc"
	kindLocation   = "location"
	kindFaction    = "faction"
	kindRules      = "rules"
	kindAbilities  = "abilities"
	kindEra        = "era"
	kindOccurrence = "occurrence"

	relMember       = "member_of"
	relResident     = "resident_of"
	relHeadquarters = "headquartered_in"
	relLeader       = "leader_of"
	relControls     = "controls"
	relAllied       = "allied_with"
	relWar          = "at_war_with"
	relSplinter     = "splinter_of"
	relTrade        = "trades_with"
	relEmbargo      = "embargoes"
	relFollower     = "follower_of"
	relPractitioner = "practitioner_of"
	relDiscovered   = "discovered_by"
	relEnacted      = "enacted_by"
	relGoverns      = "governs"
	relFriend       = "friend_of"
	relRival        = "rival_of"
	relMentor       = "mentored_by"
	relSlain        = "slain_by"
	relSucceeded    = "succeeded_by"
	relParticipant  = "participant_in"

	tagLegend = "legend"
)

// Schema parses the embedded schema.
func Schema() (*config.Schema, error) {
	s, err := config.ParseSchema(SchemaYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing frontier schema: %w", err)
	}
	return s, nil
}

// New assembles the frontier domain over schema, or over the embedded
// schema when schema is nil. The result is validated.
func New(schema *config.Schema) (engine.Domain, error) {
	if schema == nil {
		var err error
		if schema, err = Schema(); err != nil {
			return engine.Domain{}, err
		}
	}
	d := engine.Domain{
		Name:              Name,
		Schema:            schema,
		Pressures:         Pressures(),
		Templates:         Templates(),
		Actions:           ActionDomains(),
		Eras:              Eras(),
		EraKind:           kindEra,
		OccurrenceKind:    kindOccurrence,
		SuccessionKind:    relSucceeded,
		ParticipationKind: relParticipant,
		Vocabulary: systems.Vocabulary{
			Person:     kindNPC,
			Faction:    kindFaction,
			Location:   kindLocation,
			Residence:  relResident,
			Membership: relMember,
			Leadership: relLeader,
			Practice:   relPractitioner,
			Belief:     relFollower,
			Friendship: relFriend,
			Mentorship: relMentor,
			Trade:      relTrade,
			War:        relWar,
			Alliance:   relAllied,
			LegendTag:  tagLegend,
		},
		Links: lifecycle.Links{
			Residence:  []string{relResident, relHeadquarters},
			Membership: []string{relMember, relFollower},
			Practice:   []string{relPractitioner},
		},
	}
	if err := d.Validate(); err != nil {
		return engine.Domain{}, err
	}
	return d, nil
}

func live(g *world.Graph, kind string, subtypes ...string) []*world.Entity {
	all := g.Entities(world.EntityFilter{Kind: kind, ExcludeHistorical: true})
	if len(subtypes) == 0 {
		return all
	}
	var out []*world.Entity
	for _, e := range all {
		for _, s := range subtypes {
			if e.Subtype == s {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// linked returns the live entities joined to id by relKind in either direction.
func linked(g *world.Graph, id, relKind string) []*world.Entity {
	var out []*world.Entity
	for _, nid := range g.Neighbors(id, relKind) {
		if e, ok := g.Entity(nid); ok && !g.IsHistorical(e) {
			out = append(out, e)
		}
	}
	return out
}

// incoming returns the live sources of relKind edges that end at id.
func incoming(g *world.Graph, id, relKind string) []*world.Entity {
	var out []*world.Entity
	for _, r := range g.Relationships(world.RelationshipFilter{Kind: relKind, Dst: id}) {
		if e, ok := g.Entity(r.Src); ok && !g.IsHistorical(e) {
			out = append(out, e)
		}
	}
	return out
}

// outgoing returns the live targets of relKind edges that start at id.
func outgoing(g *world.Graph, id, relKind string) []*world.Entity {
	var out []*world.Entity
	for _, r := range g.Relationships(world.RelationshipFilter{Kind: relKind, Src: id}) {
		if e, ok := g.Entity(r.Dst); ok && !g.IsHistorical(e) {
			out = append(out, e)
		}
	}
	return out
}

func count(g *world.Graph, relKind string) float64 {
	return float64(len(g.Relationships(world.RelationshipFilter{Kind: relKind})))
}

func population(g *world.Graph, kind string) float64 {
	return float64(g.CountEntities(world.EntityFilter{Kind: kind, ExcludeHistorical: true}))
}

func except(entities []*world.Entity, ids ...string) []*world.Entity {
	var out []*world.Entity
	for _, e := range entities {
		skip := false
		for _, id := range ids {
			if e.ID == id {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out
}
