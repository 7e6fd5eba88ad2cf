// Package worldtest provides a small schema and graph helpers for tests.
package worldtest

import (
	"testing"

	"worldloom/internal/config"
	"worldloom/internal/world"
)

// SchemaYAML exercises every relationship category.
const SchemaYAML = `version: 1
entity_kinds:
  - name: npc
    subtypes:
      - name: merchant
      - name: hero
      - name: mage
      - name: leader
        authority: true
    statuses:
      - name: alive
        polarity: positive
      - name: exiled
        polarity: negative
      - name: dead
        polarity: negative
        historical: true
    default_status: alive
    lineage: mentored_by
  - name: location
    subtypes:
      - name: settlement
      - name: wilderness
    statuses:
      - name: thriving
        polarity: positive
      - name: ruined
        polarity: negative
      - name: abandoned
        historical: true
    default_status: thriving
  - name: faction
    subtypes:
      - name: guild
      - name: cult
      - name: crown
        authority: true
    statuses:
      - name: active
        polarity: positive
      - name: waning
        polarity: negative
      - name: dissolved
        historical: true
    default_status: active
    lineage: splinter_of
  - name: abilities
    subtypes:
      - name: spell
    statuses:
      - name: known
      - name: lost
        historical: true
    default_status: known
  - name: era
    subtypes:
      - name: expansion
      - name: conflict
    statuses:
      - name: current
      - name: past
        historical: true
    default_status: current
  - name: occurrence
    subtypes:
      - name: war
    statuses:
      - name: ongoing
      - name: ended
        historical: true
    default_status: ongoing
relationship_kinds:
  - name: member_of
    src_kinds: [npc]
    dst_kinds: [faction]
    category: structural
    container: true
  - name: resident_of
    src_kinds: [npc]
    dst_kinds: [location]
    category: structural
  - name: controls
    src_kinds: [faction]
    dst_kinds: [location]
    category: political
  - name: leader_of
    src_kinds: [npc]
    dst_kinds: [faction]
    category: political
    protected: true
  - name: allied_with
    src_kinds: [faction]
    dst_kinds: [faction]
    category: political
    polarity: positive
    conflicts_with: [at_war_with]
  - name: at_war_with
    src_kinds: [faction]
    dst_kinds: [faction]
    category: political
    polarity: negative
  - name: splinter_of
    src_kinds: [faction]
    dst_kinds: [faction]
    category: immutable_fact
    distance_range: [0.2, 0.6]
  - name: trades_with
    src_kinds: [faction]
    dst_kinds: [faction]
    category: economic
    polarity: positive
  - name: practitioner_of
    src_kinds: [npc]
    dst_kinds: [abilities]
    category: magical
  - name: follower_of
    src_kinds: [npc]
    dst_kinds: [faction]
    category: ideological
  - name: friend_of
    src_kinds: [npc]
    dst_kinds: [npc]
    category: social
    polarity: positive
    conflicts_with: [rival_of]
  - name: rival_of
    src_kinds: [npc]
    dst_kinds: [npc]
    category: social
    polarity: negative
  - name: mentored_by
    src_kinds: [npc]
    dst_kinds: [npc]
    category: social
    polarity: positive
    distance_range: [0.1, 0.3]
  - name: discovered_by
    src_kinds: [abilities]
    dst_kinds: [npc]
    category: attribution
  - name: succeeded_by
    src_kinds: [era]
    dst_kinds: [era]
    category: temporal
  - name: participant_in
    src_kinds: [npc, faction, location]
    dst_kinds: [occurrence]
    category: structural
cultures:
  - name: highland
  - name: coastal
relationship_limits:
  leader_of: 1
`

func Schema(t testing.TB) *config.Schema {
	t.Helper()
	schema, err := config.ParseSchema([]byte(SchemaYAML))
	if err != nil {
		t.Fatalf("parsing test schema: %v", err)
	}
	return schema
}

func NewGraph(t testing.TB) *world.Graph {
	t.Helper()
	return world.New(Schema(t))
}

// Add inserts an entity or fails the test.
func Add(t testing.TB, g *world.Graph, kind, subtype, name string) *world.Entity {
	t.Helper()
	e, err := g.AddEntity(world.EntityDraft{Kind: kind, Subtype: subtype, Name: name})
	if err != nil {
		t.Fatalf("adding %s/%s %q: %v", kind, subtype, name, err)
	}
	return e
}

// Relate inserts a relationship or fails the test.
func Relate(t testing.TB, g *world.Graph, kind, src, dst string, strength float64) *world.Relationship {
	t.Helper()
	r, err := g.AddRelationship(kind, src, dst, strength, "")
	if err != nil {
		t.Fatalf("relating %s %s -> %s: %v", kind, src, dst, err)
	}
	return r
}
