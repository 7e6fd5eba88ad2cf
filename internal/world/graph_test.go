package world_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldloom/internal/world"
	"worldloom/internal/world/worldtest"
)

type recordedChange struct {
	id, field, prev, cur, catalyst string
}

type recorder struct {
	changes []recordedChange
	graph   *world.Graph
	seen    []string
}

func (r *recorder) RecordChange(id string, field world.Field, prev, cur, catalyst string) {
	r.changes = append(r.changes, recordedChange{id, string(field), prev, cur, catalyst})
	if r.graph != nil {
		e, _ := r.graph.Entity(id)
		r.seen = append(r.seen, e.Status)
	}
}

func TestEntityLookup(t *testing.T) {
	g := worldtest.NewGraph(t)

	e := worldtest.Add(t, g, "npc", "merchant", "Ada")
	assert.Equal(t, "npc-1", e.ID)
	assert.Equal(t, "alive", e.Status)

	got, ok := g.Entity(e.ID)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Name)

	missing, ok := g.Entity("npc-99")
	assert.False(t, ok)
	assert.Nil(t, missing)
}

func TestEntitiesFilterAndOrder(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "npc", "merchant", "A")
	worldtest.Add(t, g, "location", "settlement", "Town")
	c := worldtest.Add(t, g, "npc", "hero", "C")
	d := worldtest.Add(t, g, "npc", "merchant", "D")
	require.NoError(t, g.SetEntityField(d.ID, world.FieldStatus, "dead", ""))

	npcs := g.Entities(world.EntityFilter{Kind: "npc"})
	require.Len(t, npcs, 3)
	assert.Equal(t, []string{a.ID, c.ID, d.ID}, ids(npcs))

	live := g.Entities(world.EntityFilter{Kind: "npc", ExcludeHistorical: true})
	assert.Equal(t, []string{a.ID, c.ID}, ids(live))

	merchants := g.Entities(world.EntityFilter{Kind: "npc", Subtype: "merchant", Status: "alive"})
	assert.Equal(t, []string{a.ID}, ids(merchants))

	assert.Equal(t, 3, g.CountEntities(world.EntityFilter{Kind: "npc"}))
	assert.True(t, g.IsHistorical(d))
}

func TestApplyResolvesPlaceholders(t *testing.T) {
	g := worldtest.NewGraph(t)
	parent := worldtest.Add(t, g, "faction", "guild", "Old Guild")

	cs := world.ChangeSet{
		Entities: []world.EntityDraft{
			{Kind: "faction", Subtype: "guild", Name: "New Guild"},
			{Kind: "npc", Subtype: "leader", Name: "Boss"},
		},
		Relationships: []world.RelationshipDraft{
			{Kind: "splinter_of", Src: world.Placeholder(0), Dst: world.Existing(parent.ID)},
			{Kind: "leader_of", Src: world.Placeholder(1), Dst: world.Placeholder(0)},
			{Kind: "at_war_with", Src: world.Placeholder(0), Dst: world.Existing(parent.ID), Strength: 0.9},
		},
		Description: "guild splits",
	}

	committed, err := g.Apply(cs, "")
	require.NoError(t, err)
	require.Len(t, committed.EntityIDs, 2)
	require.Len(t, committed.Relationships, 3)
	assert.Equal(t, "faction-2", committed.EntityIDs[0])
	assert.Equal(t, "npc-1", committed.EntityIDs[1])
	assert.Equal(t, committed.EntityIDs[0], committed.Resolve(world.Placeholder(0)))

	assert.True(t, g.HasRelationship("npc-1", "faction-2", "leader_of"))
	war, ok := g.ActiveRelationship(world.RelationshipKey{Src: "faction-2", Dst: parent.ID, Kind: "at_war_with"})
	require.True(t, ok)
	assert.InDelta(t, 0.9, war.Strength, 1e-9)

	def, ok := g.ActiveRelationship(world.RelationshipKey{Src: "faction-2", Dst: parent.ID, Kind: "splinter_of"})
	require.True(t, ok)
	assert.InDelta(t, world.DefaultStrength, def.Strength, 1e-9)
}

func TestApplyIsAtomic(t *testing.T) {
	tests := []struct {
		name    string
		cs      func(existing string) world.ChangeSet
		wantErr error
	}{
		{
			name: "unknown kind",
			cs: func(string) world.ChangeSet {
				return world.ChangeSet{Entities: []world.EntityDraft{
					{Kind: "npc", Subtype: "hero"},
					{Kind: "dragon", Subtype: "red"},
				}}
			},
			wantErr: world.ErrUnknownKind,
		},
		{
			name: "invalid subtype",
			cs: func(string) world.ChangeSet {
				return world.ChangeSet{Entities: []world.EntityDraft{{Kind: "npc", Subtype: "wizard"}}}
			},
			wantErr: world.ErrInvalidSubtype,
		},
		{
			name: "invalid status",
			cs: func(string) world.ChangeSet {
				return world.ChangeSet{Entities: []world.EntityDraft{{Kind: "npc", Subtype: "hero", Status: "sleeping"}}}
			},
			wantErr: world.ErrInvalidStatus,
		},
		{
			name: "kind not permitted",
			cs: func(existing string) world.ChangeSet {
				return world.ChangeSet{
					Entities: []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
					Relationships: []world.RelationshipDraft{
						{Kind: "member_of", Src: world.Placeholder(0), Dst: world.Existing(existing)},
					},
				}
			},
			wantErr: world.ErrKindNotPermitted,
		},
		{
			name: "unresolved placeholder",
			cs: func(existing string) world.ChangeSet {
				return world.ChangeSet{
					Entities: []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
					Relationships: []world.RelationshipDraft{
						{Kind: "friend_of", Src: world.Placeholder(0), Dst: world.Placeholder(3)},
					},
				}
			},
			wantErr: world.ErrUnresolvedRef,
		},
		{
			name: "unknown entity",
			cs: func(string) world.ChangeSet {
				return world.ChangeSet{
					Entities: []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
					Relationships: []world.RelationshipDraft{
						{Kind: "friend_of", Src: world.Placeholder(0), Dst: world.Existing("npc-404")},
					},
				}
			},
			wantErr: world.ErrUnknownEntity,
		},
		{
			name: "unknown relationship kind",
			cs: func(existing string) world.ChangeSet {
				return world.ChangeSet{
					Entities:      []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
					Relationships: []world.RelationshipDraft{{Kind: "loves", Src: world.Placeholder(0), Dst: world.Existing(existing)}},
				}
			},
			wantErr: world.ErrUnknownRelationshipKind,
		},
		{
			name: "bad field value",
			cs: func(existing string) world.ChangeSet {
				return world.ChangeSet{
					Entities: []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
					Fields:   []world.FieldChange{{EntityID: existing, Field: world.FieldStatus, Value: "vanished"}},
				}
			},
			wantErr: world.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := worldtest.NewGraph(t)
			loc := worldtest.Add(t, g, "location", "settlement", "Town")
			before := g.EntityCount()
			relsBefore := g.RelationshipCount()

			_, err := g.Apply(tt.cs(loc.ID), "")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, g.EntityCount())
			assert.Equal(t, relsBefore, g.RelationshipCount())
			assert.Equal(t, "thriving", loc.Status)

			// the id sequence is not consumed by a rejected commit
			next := worldtest.Add(t, g, "npc", "hero", "After")
			assert.Equal(t, "npc-1", next.ID)
		})
	}
}

func TestRelationshipLimit(t *testing.T) {
	g := worldtest.NewGraph(t)
	boss := worldtest.Add(t, g, "npc", "leader", "Boss")
	f1 := worldtest.Add(t, g, "faction", "crown", "One")
	f2 := worldtest.Add(t, g, "faction", "crown", "Two")

	worldtest.Relate(t, g, "leader_of", boss.ID, f1.ID, 1)
	_, err := g.AddRelationship("leader_of", boss.ID, f2.ID, 1, "")
	require.ErrorIs(t, err, world.ErrLimitExceeded)

	// re-committing an existing relationship merges instead of counting
	r, err := g.AddRelationship("leader_of", boss.ID, f1.ID, 0.5, "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Strength, 1e-9)
}

func TestDuplicateMergesStrength(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "npc", "hero", "A")
	b := worldtest.Add(t, g, "npc", "hero", "B")
	worldtest.Relate(t, g, "friend_of", a.ID, b.ID, 0.3)

	committed, err := g.Apply(world.ChangeSet{Relationships: []world.RelationshipDraft{
		{Kind: "friend_of", Src: world.Existing(a.ID), Dst: world.Existing(b.ID), Strength: 0.8},
	}}, "")
	require.NoError(t, err)
	assert.Empty(t, committed.Relationships)
	assert.Len(t, committed.Merged, 1)
	assert.Len(t, g.Relationships(world.RelationshipFilter{Kind: "friend_of"}), 1)
	r, _ := g.ActiveRelationship(world.RelationshipKey{Src: a.ID, Dst: b.ID, Kind: "friend_of"})
	assert.InDelta(t, 0.8, r.Strength, 1e-9)
}

func TestConflictSupersedes(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "faction", "guild", "A")
	b := worldtest.Add(t, g, "faction", "guild", "B")
	worldtest.Relate(t, g, "allied_with", a.ID, b.ID, 0.9)
	g.SetTick(4)

	committed, err := g.Apply(world.ChangeSet{Relationships: []world.RelationshipDraft{
		{Kind: "at_war_with", Src: world.Existing(a.ID), Dst: world.Existing(b.ID)},
	}}, a.ID)
	require.NoError(t, err)
	require.Len(t, committed.Archived, 1)
	assert.Equal(t, "allied_with", committed.Archived[0].Kind)

	assert.False(t, g.HasRelationship(a.ID, b.ID, "allied_with"))
	war, ok := g.ActiveRelationship(world.RelationshipKey{Src: a.ID, Dst: b.ID, Kind: "at_war_with"})
	require.True(t, ok)
	assert.Equal(t, a.ID, war.CatalyzedBy)

	all := g.Relationships(world.RelationshipFilter{Entity: a.ID, IncludeHistorical: true})
	require.Len(t, all, 2)
	require.NotNil(t, all[0].ArchivedAt)
	assert.Equal(t, 4, *all[0].ArchivedAt)
}

func TestRelationshipFilters(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "npc", "hero", "A")
	b := worldtest.Add(t, g, "npc", "hero", "B")
	f := worldtest.Add(t, g, "faction", "guild", "F")
	worldtest.Relate(t, g, "friend_of", a.ID, b.ID, 0.5)
	worldtest.Relate(t, g, "member_of", a.ID, f.ID, 1)
	worldtest.Relate(t, g, "member_of", b.ID, f.ID, 1)

	assert.Len(t, g.Relationships(world.RelationshipFilter{Category: "structural"}), 2)
	assert.Len(t, g.Relationships(world.RelationshipFilter{Dst: f.ID}), 2)
	assert.Len(t, g.Relationships(world.RelationshipFilter{Src: a.ID}), 2)
	assert.Len(t, g.EntityRelationships(b.ID), 2)
	assert.Equal(t, 2, g.Degree(a.ID))
	assert.True(t, g.Linked(b.ID, a.ID))

	require.NoError(t, g.ArchiveRelationship(world.RelationshipKey{Src: a.ID, Dst: b.ID, Kind: "friend_of"}))
	assert.Len(t, g.EntityRelationships(b.ID), 1)
	assert.Len(t, g.Relationships(world.RelationshipFilter{Entity: b.ID, IncludeHistorical: true}), 2)

	err := g.ArchiveRelationship(world.RelationshipKey{Src: a.ID, Dst: b.ID, Kind: "friend_of"})
	assert.ErrorIs(t, err, world.ErrUnknownRelationship)
}

func TestObserverSeesChangeBeforeMutation(t *testing.T) {
	g := worldtest.NewGraph(t)
	rec := &recorder{graph: g}
	g.SetObserver(rec)
	e := worldtest.Add(t, g, "npc", "hero", "A")

	require.NoError(t, g.SetEntityField(e.ID, world.FieldStatus, "dead", "npc-7"))
	require.NoError(t, g.SetEntityField(e.ID, world.FieldProminence, "renowned", ""))
	require.NoError(t, g.SetEntityField(e.ID, world.FieldName, "Ada the Bold", ""))
	require.NoError(t, g.SetEntityField(e.ID, world.FieldStatus, "dead", ""))

	require.Len(t, rec.changes, 2)
	assert.Equal(t, recordedChange{e.ID, "status", "alive", "dead", "npc-7"}, rec.changes[0])
	assert.Equal(t, recordedChange{e.ID, "prominence", "forgotten", "renowned", ""}, rec.changes[1])
	assert.Equal(t, "alive", rec.seen[0])
	assert.Equal(t, world.Renowned, e.Prominence)
}

func TestHuddles(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "faction", "guild", "A")
	b := worldtest.Add(t, g, "faction", "guild", "B")
	c := worldtest.Add(t, g, "faction", "guild", "C")
	d := worldtest.Add(t, g, "faction", "guild", "D")
	worldtest.Add(t, g, "faction", "guild", "Loner")
	worldtest.Relate(t, g, "allied_with", b.ID, a.ID, 1)
	worldtest.Relate(t, g, "allied_with", c.ID, d.ID, 1)

	huddles := g.Huddles("faction", "allied_with")
	assert.Equal(t, [][]string{{a.ID, b.ID}, {c.ID, d.ID}}, huddles)
}

func TestTagsAndJSON(t *testing.T) {
	g := worldtest.NewGraph(t)
	e, err := g.AddEntity(world.EntityDraft{
		Kind:       "npc",
		Subtype:    "mage",
		Name:       "Vel",
		Culture:    "highland",
		Prominence: world.Recognized,
		Tags:       []string{"wanderer"},
	})
	require.NoError(t, err)
	require.NoError(t, g.SetEntityField(e.ID, world.FieldTag, "exile", ""))
	require.NoError(t, g.SetEntityField(e.ID, world.FieldUntag, "wanderer", ""))
	assert.True(t, e.HasTag("exile"))
	assert.False(t, e.HasTag("wanderer"))

	_, err = g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "mage", Culture: "desert"})
	assert.ErrorIs(t, err, world.ErrInvalidCulture)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prominence":"recognized"`)

	var back world.Entity
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, world.Recognized, back.Prominence)
}

func TestParseRef(t *testing.T) {
	ref := world.ParseRef("will-be-assigned-2")
	assert.True(t, ref.IsPlaceholder())
	assert.Equal(t, 2, ref.Index())
	assert.Equal(t, "will-be-assigned-2", ref.String())

	plain := world.ParseRef("npc-3")
	assert.False(t, plain.IsPlaceholder())
	assert.Equal(t, "npc-3", plain.ID())
}

func TestChangeSetMerge(t *testing.T) {
	a := world.ChangeSet{
		Entities:    []world.EntityDraft{{Kind: "npc", Subtype: "hero"}},
		Description: "first",
	}
	b := world.ChangeSet{
		Entities:      []world.EntityDraft{{Kind: "npc", Subtype: "mage"}},
		Relationships: []world.RelationshipDraft{{Kind: "friend_of", Src: world.Placeholder(0), Dst: world.Existing("npc-9")}},
		Description:   "second",
	}
	a.Merge(b)
	require.Len(t, a.Entities, 2)
	assert.Equal(t, 1, a.Relationships[0].Src.Index())
	assert.Equal(t, "first; second", a.Description)
}

func TestProminence(t *testing.T) {
	assert.Equal(t, world.Mythic, world.Mythic.Raise())
	assert.Equal(t, world.Forgotten, world.Forgotten.Lower())
	assert.Equal(t, world.Renowned, world.Recognized.Raise())
	assert.InDelta(t, 0.5, world.Recognized.Weight(), 1e-9)

	_, err := world.ParseProminence("legendary")
	assert.Error(t, err)
}

func ids(es []*world.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}
