package config

import (
	"os"
	"path/filepath"
	"testing"
)

const baseKinds = `version: 1
entity_kinds:
  - name: npc
    subtypes: [{name: merchant}]
    statuses: [{name: alive}, {name: dead, historical: true}]
    default_status: alive
  - name: faction
    subtypes: [{name: guild}]
    statuses: [{name: active}]
    default_status: active
`

func TestLoadSchema(t *testing.T) {
	t.Run("valid schema loads", func(t *testing.T) {
		schema, err := LoadSchema(filepath.Join("testdata", "schema.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !schema.IsValidEntityKind("npc") {
			t.Fatalf("expected npc entity kind to be valid")
		}
		if !schema.IsValidRelationshipKind("member_of") {
			t.Fatalf("expected member_of relationship kind to be valid")
		}
	})

	t.Run("missing entity kinds", func(t *testing.T) {
		path := writeTempSchema(t, "version: 1\nentity_kinds: []\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate entity kind names", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"  - name: NPC\n    subtypes: [{name: a}]\n    statuses: [{name: b}]\n    default_status: b\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("default status not declared", func(t *testing.T) {
		path := writeTempSchema(t, "version: 1\nentity_kinds:\n  - name: npc\n    subtypes: [{name: a}]\n    statuses: [{name: alive}]\n    default_status: missing\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_kinds:\n  - {name: knows, src_kinds: [npc], dst_kinds: [npc], category: gossip}\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("relationship references unknown kind", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_kinds:\n  - {name: rules, src_kinds: [dragon], dst_kinds: [npc], category: political}\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("conflicts with unknown kind", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_kinds:\n  - {name: knows, src_kinds: [npc], dst_kinds: [npc], category: social, conflicts_with: [hates]}\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("lineage without distance range", func(t *testing.T) {
		schema := "version: 1\nentity_kinds:\n  - name: npc\n    subtypes: [{name: a}]\n    statuses: [{name: alive}]\n    default_status: alive\n    lineage: child_of\nrelationship_kinds:\n  - {name: child_of, src_kinds: [npc], dst_kinds: [npc], category: immutable_fact}\n"
		if _, err := LoadSchema(writeTempSchema(t, schema)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("inverted distance range", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_kinds:\n  - {name: knows, src_kinds: [npc], dst_kinds: [npc], category: social, distance_range: [0.5, 0.1]}\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid polarity", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_kinds:\n  - {name: knows, src_kinds: [npc], dst_kinds: [npc], category: social, polarity: sideways}\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("limit on unknown kind", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"relationship_limits:\n  knows: 2\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown category override", func(t *testing.T) {
		path := writeTempSchema(t, baseKinds+"categories:\n  - name: gossip\n    decay_rate: 0.1\n")
		if _, err := LoadSchema(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestSchemaHelpers(t *testing.T) {
	schema, err := LoadSchema(filepath.Join("testdata", "schema.yaml"))
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}

	t.Run("EntityKindByName case-insensitive", func(t *testing.T) {
		if _, ok := schema.EntityKindByName("NPC"); !ok {
			t.Fatalf("expected to find NPC entity kind")
		}
	})

	t.Run("historical status", func(t *testing.T) {
		npc, _ := schema.EntityKindByName("npc")
		if got := npc.HistoricalStatus(); got != "dead" {
			t.Fatalf("expected dead, got %q", got)
		}
		if !npc.IsHistorical("dead") || npc.IsHistorical("alive") {
			t.Fatalf("unexpected historical flags")
		}
	})

	t.Run("authority subtype", func(t *testing.T) {
		npc, _ := schema.EntityKindByName("npc")
		sub, ok := npc.Subtype("leader")
		if !ok || !sub.Authority {
			t.Fatalf("expected leader to carry authority")
		}
	})

	t.Run("permits endpoints", func(t *testing.T) {
		rel, _ := schema.RelationshipKindByName("member_of")
		if !rel.Permits("npc", "faction") {
			t.Fatalf("expected npc -> faction to be permitted")
		}
		if rel.Permits("faction", "npc") {
			t.Fatalf("expected faction -> npc to be rejected")
		}
	})

	t.Run("mutability by category", func(t *testing.T) {
		lineage, _ := schema.RelationshipKindByName("descendant_of")
		if lineage.Mutable() {
			t.Fatalf("expected immutable_fact to be immutable")
		}
		war, _ := schema.RelationshipKindByName("at_war_with")
		if !war.Mutable() {
			t.Fatalf("expected political to be mutable")
		}
	})

	t.Run("category override", func(t *testing.T) {
		cat, ok := schema.CategoryOverride("political")
		if !ok || cat.DecayRate == nil || *cat.DecayRate != 0.02 {
			t.Fatalf("expected political decay override")
		}
	})

	t.Run("cultures", func(t *testing.T) {
		if !schema.IsValidCulture("Highland") || !schema.IsValidCulture("") {
			t.Fatalf("expected declared and empty cultures to be valid")
		}
		if schema.IsValidCulture("desert") {
			t.Fatalf("expected desert to be invalid")
		}
	})

	t.Run("relationship limit", func(t *testing.T) {
		limit, ok := schema.RelationshipLimit("member_of")
		if !ok || limit != 1 {
			t.Fatalf("expected member_of limit 1, got %d", limit)
		}
	})
}

func writeTempSchema(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp schema: %v", err)
	}
	return path
}
