package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"worldloom/internal/config"
	"worldloom/internal/narrative"
	"worldloom/internal/store"
	"worldloom/internal/world"
)

type ListRunsInput struct{}

type ListEntitiesInput struct {
	Run           string `json:"run,omitempty" jsonschema:"run id, latest when empty"`
	Kind          string `json:"kind,omitempty" jsonschema:"entity kind filter"`
	Subtype       string `json:"subtype,omitempty" jsonschema:"entity subtype filter"`
	Status        string `json:"status,omitempty" jsonschema:"status filter"`
	Culture       string `json:"culture,omitempty" jsonschema:"culture filter"`
	MinProminence string `json:"min_prominence,omitempty" jsonschema:"forgotten, marginal, recognized, renowned or mythic"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum entities returned"`
}

type GetEntityInput struct {
	Run string `json:"run,omitempty" jsonschema:"run id, latest when empty"`
	ID  string `json:"id" jsonschema:"entity id"`
}

type GetRelationshipsInput struct {
	Run        string `json:"run,omitempty" jsonschema:"run id, latest when empty"`
	ID         string `json:"id" jsonschema:"entity id"`
	Kind       string `json:"kind,omitempty" jsonschema:"relationship kind filter"`
	Direction  string `json:"direction,omitempty" jsonschema:"out, in, or both"`
	Historical bool   `json:"historical,omitempty" jsonschema:"include archived relationships"`
}

type ListNarrativeEventsInput struct {
	Run             string  `json:"run,omitempty" jsonschema:"run id, latest when empty"`
	Type            string  `json:"type,omitempty" jsonschema:"event type filter"`
	Subject         string  `json:"subject,omitempty" jsonschema:"subject entity id"`
	MinSignificance float64 `json:"min_significance,omitempty" jsonschema:"lowest significance returned, 0 to 1"`
	FromTick        int     `json:"from_tick,omitempty" jsonschema:"first tick"`
	ToTick          int     `json:"to_tick,omitempty" jsonschema:"last tick"`
	Limit           int     `json:"limit,omitempty" jsonschema:"maximum events returned"`
}

type GetPressuresInput struct {
	Run string `json:"run,omitempty" jsonschema:"run id, latest when empty"`
}

type SearchWorldInput struct {
	Run   string `json:"run,omitempty" jsonschema:"run id, latest when empty"`
	Query string `json:"query" jsonschema:"search terms"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results"`
}

type GetSchemaInput struct{}

type RunOutput struct {
	ID                  string `json:"id"`
	Project             string `json:"project,omitempty"`
	Domain              string `json:"domain"`
	Seed                int64  `json:"seed"`
	Tick                int    `json:"tick"`
	Epoch               int    `json:"epoch"`
	Era                 string `json:"era,omitempty"`
	EntityCount         int    `json:"entity_count"`
	RelationshipCount   int    `json:"relationship_count"`
	NarrativeEventCount int    `json:"narrative_event_count"`
	SavedAt             string `json:"saved_at"`
}

type ListRunsOutput struct {
	Runs []RunOutput `json:"runs"`
}

type EntityOutput struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Subtype     string   `json:"subtype"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Prominence  string   `json:"prominence"`
	Culture     string   `json:"culture,omitempty"`
	Tags        []string `json:"tags"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	CreatedAt   int      `json:"created_at"`
	UpdatedAt   int      `json:"updated_at"`
}

type ListEntitiesOutput struct {
	Entities []EntityOutput `json:"entities"`
}

type RelationshipOutput struct {
	Kind        string   `json:"kind"`
	Src         string   `json:"src"`
	Dst         string   `json:"dst"`
	Strength    float64  `json:"strength"`
	CreatedAt   int      `json:"created_at"`
	CatalyzedBy string   `json:"catalyzed_by,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	ArchivedAt  *int     `json:"archived_at,omitempty"`
}

type GetRelationshipsOutput struct {
	Relationships []RelationshipOutput `json:"relationships"`
}

type NarrativeEventOutput struct {
	ID               string   `json:"id"`
	Tick             int      `json:"tick"`
	Era              string   `json:"era,omitempty"`
	Type             string   `json:"type"`
	Significance     float64  `json:"significance"`
	Headline         string   `json:"headline"`
	Subject          string   `json:"subject"`
	Affected         []string `json:"affected"`
	Catalyst         string   `json:"catalyst,omitempty"`
	Field            string   `json:"field,omitempty"`
	Previous         string   `json:"previous,omitempty"`
	Current          string   `json:"current,omitempty"`
	RelationshipKind string   `json:"relationship_kind,omitempty"`
	Counterpart      string   `json:"counterpart,omitempty"`
}

type ListNarrativeEventsOutput struct {
	Events []NarrativeEventOutput `json:"events"`
}

type PressureOutput struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type GetPressuresOutput struct {
	Pressures []PressureOutput `json:"pressures"`
}

type SearchResultOutput struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Subtype string  `json:"subtype"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

type SearchWorldOutput struct {
	Results []SearchResultOutput `json:"results"`
}

type SchemaOutput struct {
	Version           int                      `json:"version"`
	EntityKinds       []EntityKindOutput       `json:"entity_kinds"`
	RelationshipKinds []RelationshipKindOutput `json:"relationship_kinds"`
	Cultures          []string                 `json:"cultures"`
}

type EntityKindOutput struct {
	Name     string   `json:"name"`
	Subtypes []string `json:"subtypes"`
	Statuses []string `json:"statuses"`
}

type RelationshipKindOutput struct {
	Name     string   `json:"name"`
	SrcKinds []string `json:"src_kinds"`
	DstKinds []string `json:"dst_kinds"`
	Category string   `json:"category"`
	Polarity string   `json:"polarity,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_runs",
		Description: "List stored simulation runs, newest first",
	}, s.handleListRuns)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_entities",
		Description: "List the entities of a run with optional filters",
	}, s.handleListEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity of a run",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_relationships",
		Description: "List the relationships touching an entity",
	}, s.handleGetRelationships)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_narrative_events",
		Description: "List the story hooks extracted during a run",
	}, s.handleListNarrativeEvents)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_pressures",
		Description: "Return the final pressure values of a run",
	}, s.handleGetPressures)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_world",
		Description: "Search the entities of a run by name, description and tags",
	}, s.handleSearchWorld)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "Return the domain schema the runs were built from",
	}, s.handleGetSchema)
}

func (s *Server) handleListRuns(ctx context.Context, req *sdk.CallToolRequest, input ListRunsInput) (*sdk.CallToolResult, ListRunsOutput, error) {
	runs, err := s.db.ListRuns(ctx)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	output := make([]RunOutput, 0, len(runs))
	for _, run := range runs {
		output = append(output, runOutput(run))
	}
	return nil, ListRunsOutput{Runs: output}, nil
}

func (s *Server) handleListEntities(ctx context.Context, req *sdk.CallToolRequest, input ListEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	filter := store.EntityFilter{
		Kind:    input.Kind,
		Subtype: input.Subtype,
		Status:  input.Status,
		Culture: input.Culture,
		Limit:   input.Limit,
	}
	if input.MinProminence != "" {
		p, err := world.ParseProminence(input.MinProminence)
		if err != nil {
			return nil, ListEntitiesOutput{}, err
		}
		filter.MinProminence = p
	}
	entities, err := s.db.ListEntities(ctx, input.Run, filter)
	if err != nil {
		return nil, ListEntitiesOutput{}, err
	}
	output := make([]EntityOutput, 0, len(entities))
	for _, e := range entities {
		output = append(output, entityOutput(e))
	}
	return nil, ListEntitiesOutput{Entities: output}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	if input.ID == "" {
		return nil, EntityOutput{}, fmt.Errorf("id is required")
	}
	entity, err := s.db.GetEntity(ctx, input.Run, input.ID)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	return nil, entityOutput(*entity), nil
}

func (s *Server) handleGetRelationships(ctx context.Context, req *sdk.CallToolRequest, input GetRelationshipsInput) (*sdk.CallToolResult, GetRelationshipsOutput, error) {
	if input.ID == "" {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("id is required")
	}
	direction, err := store.ParseDirection(input.Direction)
	if err != nil {
		return nil, GetRelationshipsOutput{}, err
	}
	rels, err := s.db.GetRelationships(ctx, input.Run, input.ID, store.RelationshipFilter{
		Kind:              input.Kind,
		Direction:         direction,
		IncludeHistorical: input.Historical,
	})
	if err != nil {
		return nil, GetRelationshipsOutput{}, err
	}
	output := make([]RelationshipOutput, 0, len(rels))
	for _, r := range rels {
		output = append(output, RelationshipOutput{
			Kind:        r.Kind,
			Src:         r.Src,
			Dst:         r.Dst,
			Strength:    r.Strength,
			CreatedAt:   r.CreatedAt,
			CatalyzedBy: r.CatalyzedBy,
			Distance:    r.Distance,
			ArchivedAt:  r.ArchivedAt,
		})
	}
	return nil, GetRelationshipsOutput{Relationships: output}, nil
}

func (s *Server) handleListNarrativeEvents(ctx context.Context, req *sdk.CallToolRequest, input ListNarrativeEventsInput) (*sdk.CallToolResult, ListNarrativeEventsOutput, error) {
	if input.MinSignificance < 0 || input.MinSignificance > 1 {
		return nil, ListNarrativeEventsOutput{}, fmt.Errorf("min_significance must be between 0 and 1")
	}
	events, err := s.db.ListNarrativeEvents(ctx, input.Run, store.EventFilter{
		Type:            input.Type,
		Subject:         input.Subject,
		MinSignificance: input.MinSignificance,
		FromTick:        input.FromTick,
		ToTick:          input.ToTick,
		Limit:           input.Limit,
	})
	if err != nil {
		return nil, ListNarrativeEventsOutput{}, err
	}
	output := make([]NarrativeEventOutput, 0, len(events))
	for _, ev := range events {
		output = append(output, eventOutput(ev))
	}
	return nil, ListNarrativeEventsOutput{Events: output}, nil
}

func (s *Server) handleGetPressures(ctx context.Context, req *sdk.CallToolRequest, input GetPressuresInput) (*sdk.CallToolResult, GetPressuresOutput, error) {
	values, err := s.db.GetPressures(ctx, input.Run)
	if err != nil {
		return nil, GetPressuresOutput{}, err
	}
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	output := make([]PressureOutput, 0, len(ids))
	for _, id := range ids {
		output = append(output, PressureOutput{ID: id, Value: values[id]})
	}
	return nil, GetPressuresOutput{Pressures: output}, nil
}

func (s *Server) handleSearchWorld(ctx context.Context, req *sdk.CallToolRequest, input SearchWorldInput) (*sdk.CallToolResult, SearchWorldOutput, error) {
	if input.Query == "" {
		return nil, SearchWorldOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.db.Search(ctx, input.Run, input.Query, input.Limit)
	if err != nil {
		return nil, SearchWorldOutput{}, err
	}
	output := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		output = append(output, SearchResultOutput{
			ID:      r.ID,
			Name:    r.Name,
			Kind:    r.Kind,
			Subtype: r.Subtype,
			Score:   r.Score,
			Snippet: r.Snippet,
		})
	}
	return nil, SearchWorldOutput{Results: output}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, req *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	return nil, schemaOutput(s.schema), nil
}

func runOutput(run store.Run) RunOutput {
	return RunOutput{
		ID:                  run.ID,
		Project:             run.Project,
		Domain:              run.Domain,
		Seed:                run.Seed,
		Tick:                run.Tick,
		Epoch:               run.Epoch,
		Era:                 run.Era,
		EntityCount:         run.EntityCount,
		RelationshipCount:   run.RelationshipCount,
		NarrativeEventCount: run.NarrativeEventCount,
		SavedAt:             run.SavedAt.UTC().Format(time.RFC3339),
	}
}

func entityOutput(e world.Entity) EntityOutput {
	tags := make([]string, 0, len(e.Tags))
	for tag, on := range e.Tags {
		if on {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return EntityOutput{
		ID:          e.ID,
		Kind:        e.Kind,
		Subtype:     e.Subtype,
		Name:        e.Name,
		Description: e.Description,
		Status:      e.Status,
		Prominence:  e.Prominence.String(),
		Culture:     e.Culture,
		Tags:        tags,
		X:           e.Coordinates.X,
		Y:           e.Coordinates.Y,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func eventOutput(ev narrative.Event) NarrativeEventOutput {
	return NarrativeEventOutput{
		ID:               ev.ID,
		Tick:             ev.Tick,
		Era:              ev.Era,
		Type:             string(ev.Type),
		Significance:     ev.Significance,
		Headline:         ev.Headline,
		Subject:          ev.Subject,
		Affected:         append([]string{}, ev.Affected...),
		Catalyst:         ev.Catalyst,
		Field:            ev.Field,
		Previous:         ev.Previous,
		Current:          ev.Current,
		RelationshipKind: ev.RelationshipKind,
		Counterpart:      ev.Counterpart,
	}
}

func schemaOutput(schema *config.Schema) SchemaOutput {
	if schema == nil {
		return SchemaOutput{}
	}

	out := SchemaOutput{
		Version:           schema.Version,
		EntityKinds:       make([]EntityKindOutput, 0, len(schema.EntityKinds)),
		RelationshipKinds: make([]RelationshipKindOutput, 0, len(schema.RelationshipKinds)),
		Cultures:          make([]string, 0, len(schema.Cultures)),
	}
	for _, kind := range schema.EntityKinds {
		kindOut := EntityKindOutput{
			Name:     kind.Name,
			Subtypes: make([]string, 0, len(kind.Subtypes)),
			Statuses: make([]string, 0, len(kind.Statuses)),
		}
		for _, sub := range kind.Subtypes {
			kindOut.Subtypes = append(kindOut.Subtypes, sub.Name)
		}
		for _, st := range kind.Statuses {
			kindOut.Statuses = append(kindOut.Statuses, st.Name)
		}
		out.EntityKinds = append(out.EntityKinds, kindOut)
	}
	for _, rel := range schema.RelationshipKinds {
		out.RelationshipKinds = append(out.RelationshipKinds, RelationshipKindOutput{
			Name:     rel.Name,
			SrcKinds: append([]string{}, rel.SrcKinds...),
			DstKinds: append([]string{}, rel.DstKinds...),
			Category: rel.Category,
			Polarity: rel.EffectivePolarity(),
		})
	}
	for _, c := range schema.Cultures {
		out.Cultures = append(out.Cultures, c.Name)
	}
	return out
}
