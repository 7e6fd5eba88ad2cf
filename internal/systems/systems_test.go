package systems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldloom/internal/world"
	"worldloom/internal/world/worldtest"
)

var vocab = Vocabulary{
	Person:     "npc",
	Faction:    "faction",
	Location:   "location",
	Residence:  "resident_of",
	Membership: "member_of",
	Leadership: "leader_of",
	Practice:   "practitioner_of",
	Belief:     "follower_of",
	Friendship: "friend_of",
	Mentorship: "mentored_by",
	Trade:      "trades_with",
	War:        "at_war_with",
	Alliance:   "allied_with",
	LegendTag:  "legend",
}

// certain sets every chance knob to 1.
var certain = Tuning{
	"prominence_evolution.raise_chance": 1,
	"prominence_evolution.lower_chance": 1,
	"cultural_drift.chance":             1,
	"contagion.rate":                    1,
	"belief_contagion.rate":             1,
	"resource_flow.break_chance":        1,
	"resource_flow.open_chance":         1,
	"alliance_formation.chance":         1,
}

func newContext(g *world.Graph) *Context {
	return &Context{Graph: g, Rand: rand.New(rand.NewSource(1)), Tick: 5, Vocab: vocab, Tuning: certain}
}

func run(t *testing.T, g *world.Graph, name string) Result {
	t.Helper()
	selected, unknown := Select([]string{name})
	require.Empty(t, unknown)
	results := NewRunner(selected, nil).Run(newContext(g))
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	return results[0]
}

func TestSelect(t *testing.T) {
	selected, unknown := Select([]string{SuccessionVacuum, "weather", Contagion})
	require.Len(t, selected, 2)
	assert.Equal(t, SuccessionVacuum, selected[0].Name())
	assert.Equal(t, Contagion, selected[1].Name())
	assert.Equal(t, []string{"weather"}, unknown)

	all, unknown := Select(nil)
	assert.Empty(t, unknown)
	assert.Len(t, all, len(DefaultOrder))
	assert.Len(t, Names(), len(DefaultOrder))
}

func TestProminenceEvolution(t *testing.T) {
	g := worldtest.NewGraph(t)
	hub := worldtest.Add(t, g, "npc", "hero", "Hub")
	var spokes []*world.Entity
	for i := 0; i < 4; i++ {
		s := worldtest.Add(t, g, "npc", "merchant", "")
		worldtest.Relate(t, g, "friend_of", hub.ID, s.ID, 0.5)
		spokes = append(spokes, s)
	}
	loner, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "mage", Prominence: world.Recognized})
	require.NoError(t, err)

	run(t, g, ProminenceEvolution)
	assert.Equal(t, world.Marginal, hub.Prominence)
	assert.Equal(t, world.Marginal, loner.Prominence)
	for _, s := range spokes {
		assert.Equal(t, world.Forgotten, s.Prominence)
	}
}

func TestCulturalDrift(t *testing.T) {
	g := worldtest.NewGraph(t)
	town := worldtest.Add(t, g, "location", "settlement", "Town")
	var ids []string
	for _, culture := range []string{"highland", "highland", "coastal"} {
		e, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "merchant", Culture: culture})
		require.NoError(t, err)
		worldtest.Relate(t, g, "resident_of", e.ID, town.ID, 0.5)
		ids = append(ids, e.ID)
	}

	run(t, g, CulturalDrift)
	for _, id := range ids {
		e, _ := g.Entity(id)
		assert.Equal(t, "highland", e.Culture)
	}
}

func TestContagionFollowsFriendships(t *testing.T) {
	g := worldtest.NewGraph(t)
	cult := worldtest.Add(t, g, "faction", "cult", "Cult")
	a := worldtest.Add(t, g, "npc", "hero", "A")
	b := worldtest.Add(t, g, "npc", "hero", "B")
	c := worldtest.Add(t, g, "npc", "hero", "C")
	worldtest.Relate(t, g, "follower_of", a.ID, cult.ID, 1)
	worldtest.Relate(t, g, "friend_of", a.ID, b.ID, 1)

	res := run(t, g, Contagion)
	assert.True(t, g.HasRelationship(b.ID, cult.ID, "follower_of"))
	assert.False(t, g.HasRelationship(c.ID, cult.ID, "follower_of"))
	assert.Equal(t, "1 conversion", res.Description)
}

func TestBeliefContagionFollowsMentorships(t *testing.T) {
	g := worldtest.NewGraph(t)
	spell := worldtest.Add(t, g, "abilities", "spell", "Fire")
	master := worldtest.Add(t, g, "npc", "mage", "Master")
	student := worldtest.Add(t, g, "npc", "mage", "Student")
	worldtest.Relate(t, g, "practitioner_of", master.ID, spell.ID, 1)
	worldtest.Relate(t, g, "mentored_by", student.ID, master.ID, 1)

	run(t, g, BeliefContagion)
	assert.True(t, g.HasRelationship(student.ID, spell.ID, "practitioner_of"))
}

func TestResourceFlow(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "faction", "guild", "A")
	b := worldtest.Add(t, g, "faction", "guild", "B")
	c := worldtest.Add(t, g, "faction", "guild", "C")
	worldtest.Relate(t, g, "trades_with", a.ID, b.ID, 0.8)
	worldtest.Relate(t, g, "at_war_with", b.ID, a.ID, 0.8)
	worldtest.Relate(t, g, "allied_with", a.ID, c.ID, 0.8)

	run(t, g, ResourceFlow)
	assert.False(t, g.HasRelationship(a.ID, b.ID, "trades_with"))
	assert.True(t, g.HasRelationship(a.ID, c.ID, "trades_with"))
	archived := g.Relationships(world.RelationshipFilter{Kind: "trades_with", Src: a.ID, Dst: b.ID, IncludeHistorical: true})
	require.Len(t, archived, 1)
	assert.False(t, archived[0].Active())
}

func TestAllianceFormation(t *testing.T) {
	g := worldtest.NewGraph(t)
	a := worldtest.Add(t, g, "faction", "guild", "A")
	b := worldtest.Add(t, g, "faction", "guild", "B")
	enemy := worldtest.Add(t, g, "faction", "crown", "Enemy")
	bystander := worldtest.Add(t, g, "faction", "cult", "Bystander")
	worldtest.Relate(t, g, "at_war_with", a.ID, enemy.ID, 0.8)
	worldtest.Relate(t, g, "at_war_with", enemy.ID, b.ID, 0.8)

	run(t, g, AllianceFormation)
	assert.True(t, g.HasRelationship(a.ID, b.ID, "allied_with"))
	assert.False(t, g.Linked(a.ID, bystander.ID))
	assert.False(t, g.HasRelationship(a.ID, enemy.ID, "allied_with"))
}

func TestLegendCrystallization(t *testing.T) {
	g := worldtest.NewGraph(t)
	hero, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "hero", Status: "dead", Prominence: world.Renowned})
	require.NoError(t, err)
	alive, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "hero", Prominence: world.Renowned})
	require.NoError(t, err)

	run(t, g, LegendCrystallization)
	assert.Equal(t, world.Mythic, hero.Prominence)
	assert.True(t, hero.HasTag("legend"))
	assert.Equal(t, world.Renowned, alive.Prominence)

	results := NewRunner([]System{legendCrystallization{}}, nil).Run(newContext(g))
	assert.Empty(t, results)
}

func TestSuccessionVacuum(t *testing.T) {
	g := worldtest.NewGraph(t)
	crown := worldtest.Add(t, g, "faction", "crown", "Crown")
	king, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "leader", Status: "dead"})
	require.NoError(t, err)
	worldtest.Relate(t, g, "leader_of", king.ID, crown.ID, 1)

	low := worldtest.Add(t, g, "npc", "merchant", "Low")
	high, err := g.AddEntity(world.EntityDraft{Kind: "npc", Subtype: "hero", Prominence: world.Renowned})
	require.NoError(t, err)
	worldtest.Relate(t, g, "member_of", low.ID, crown.ID, 1)
	worldtest.Relate(t, g, "member_of", high.ID, crown.ID, 1)

	run(t, g, SuccessionVacuum)
	assert.True(t, g.HasRelationship(high.ID, crown.ID, "leader_of"))
	assert.False(t, g.HasRelationship(king.ID, crown.ID, "leader_of"))
	assert.False(t, g.HasRelationship(low.ID, crown.ID, "leader_of"))
}

func TestRunnerRecoversFromPanics(t *testing.T) {
	g := worldtest.NewGraph(t)
	results := NewRunner([]System{panicky{}}, nil).Run(newContext(g))
	assert.Empty(t, results)
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Apply(*Context) world.ChangeSet { panic("boom") }
