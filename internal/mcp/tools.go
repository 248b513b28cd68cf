package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"chronicle/internal/extract"
	"chronicle/internal/narrative"
	"chronicle/internal/review"
	"chronicle/internal/state"
)

type GetWorldStateInput struct{}

type GetWorldStateOutput struct {
	WorldState state.Document `json:"world_state"`
	ArcEvents  state.Document `json:"arc_events,omitempty"`
}

type GetNPCInput struct {
	Name string `json:"name" jsonschema:"character name or alias"`
}

type GetNPCOutput struct {
	Key      string         `json:"key"`
	Document state.Document `json:"document"`
}

type ListNPCsInput struct{}

type NPCSummaryOutput struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Alias       string `json:"alias,omitempty"`
	Faction     string `json:"faction,omitempty"`
}

type ListNPCsOutput struct {
	NPCs []NPCSummaryOutput `json:"npcs"`
}

type ExtractInput struct {
	Text         string `json:"text" jsonschema:"raw narrator message to extract changes from"`
	Continuation bool   `json:"continuation,omitempty" jsonschema:"whether the text continues the previous message"`
	Previous     string `json:"previous,omitempty" jsonschema:"previous message text for continuation merging"`
}

type ExtractOutput struct {
	Proposed int            `json:"proposed"`
	Pending  []ChangeOutput `json:"pending"`
}

type RescanInput struct {
	Turns      []narrative.Turn `json:"turns" jsonschema:"historical chat turns, oldest first"`
	Window     int              `json:"window,omitempty" jsonschema:"how many of the newest turns to scan"`
	BlocksOnly bool             `json:"blocks_only,omitempty" jsonschema:"skip the batched extraction call"`
}

type RescanOutput struct {
	Summary   string `json:"summary"`
	BlockHits int    `json:"block_hits"`
	Proposed  int    `json:"proposed"`
	Cancelled bool   `json:"cancelled"`
}

type ListPendingInput struct{}

type ChangeOutput struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	EntityKey   string `json:"entity_key,omitempty"`
	Description string `json:"description"`
	Previous    any    `json:"previous"`
	Proposed    any    `json:"proposed"`
}

type ListPendingOutput struct {
	Changes []ChangeOutput `json:"changes"`
}

type ChangeIDInput struct {
	ID string `json:"id" jsonschema:"proposed change id"`
}

type ReviewOutput struct {
	Applied   int      `json:"applied"`
	Discarded int      `json:"discarded,omitempty"`
	Pending   int      `json:"pending"`
	Errors    []string `json:"errors,omitempty"`
}

type SummaryInput struct{}

type SummaryOutput struct {
	Summary string `json:"summary"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_world_state",
		Description: "Return the world-state document and arc-event ledger",
	}, s.handleGetWorldState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_npc",
		Description: "Resolve a character name and return its document",
	}, s.handleGetNPC)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_npcs",
		Description: "List known characters",
	}, s.handleListNPCs)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "extract_changes",
		Description: "Extract proposed state changes from a narrator message",
	}, s.handleExtract)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "rescan_history",
		Description: "Scan a window of historical turns for missed state changes",
	}, s.handleRescan)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_pending",
		Description: "List proposed changes awaiting review",
	}, s.handleListPending)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "accept_change",
		Description: "Apply one proposed change",
	}, s.handleAccept)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "deny_change",
		Description: "Discard one proposed change",
	}, s.handleDeny)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "accept_all",
		Description: "Apply every pending change in order",
	}, s.handleAcceptAll)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "deny_all",
		Description: "Discard every pending change",
	}, s.handleDenyAll)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "context_summary",
		Description: "Render the world/NPC summary for prompt injection",
	}, s.handleSummary)
}

func (s *Server) handleGetWorldState(ctx context.Context, req *sdk.CallToolRequest, input GetWorldStateInput) (*sdk.CallToolResult, GetWorldStateOutput, error) {
	out := GetWorldStateOutput{}
	if ws, ok := s.ctrl.State().Get(state.WorldStateKey); ok {
		out.WorldState = ws
	}
	if events, ok := s.ctrl.State().Get(state.ArcEventsKey); ok {
		out.ArcEvents = events
	}
	return nil, out, nil
}

func (s *Server) handleGetNPC(ctx context.Context, req *sdk.CallToolRequest, input GetNPCInput) (*sdk.CallToolResult, GetNPCOutput, error) {
	if input.Name == "" {
		return nil, GetNPCOutput{}, fmt.Errorf("name is required")
	}
	key := s.ctrl.State().Resolve(input.Name)
	if key == "" {
		return nil, GetNPCOutput{}, fmt.Errorf("no character matches %q", input.Name)
	}
	doc, _ := s.ctrl.State().Get(key)
	return nil, GetNPCOutput{Key: key, Document: doc}, nil
}

func (s *Server) handleListNPCs(ctx context.Context, req *sdk.CallToolRequest, input ListNPCsInput) (*sdk.CallToolResult, ListNPCsOutput, error) {
	st := s.ctrl.State()
	out := ListNPCsOutput{NPCs: make([]NPCSummaryOutput, 0)}
	for _, key := range st.NPCKeys() {
		doc, _ := st.Get(key)
		out.NPCs = append(out.NPCs, NPCSummaryOutput{
			Key:         key,
			DisplayName: state.Str(doc, "display_name"),
			Alias:       state.Str(doc, "alias"),
			Faction:     state.Str(doc, "faction"),
		})
	}
	return nil, out, nil
}

func (s *Server) handleExtract(ctx context.Context, req *sdk.CallToolRequest, input ExtractInput) (*sdk.CallToolResult, ExtractOutput, error) {
	if input.Text == "" {
		return nil, ExtractOutput{}, fmt.Errorf("text is required")
	}
	text := narrative.MergeContinuation(input.Text, input.Previous, input.Continuation)
	proposed, err := s.ctrl.HandleMessage(ctx, narrative.Turn{Role: narrative.RoleNarrator, Text: text})
	if err != nil {
		return nil, ExtractOutput{}, err
	}
	return nil, ExtractOutput{Proposed: proposed, Pending: changeOutputs(s.ctrl.PendingChanges())}, nil
}

func (s *Server) handleRescan(ctx context.Context, req *sdk.CallToolRequest, input RescanInput) (*sdk.CallToolResult, RescanOutput, error) {
	if len(input.Turns) == 0 {
		return nil, RescanOutput{}, fmt.Errorf("turns are required")
	}
	report, err := s.ctrl.RescanHistory(ctx, input.Turns, extract.RescanOptions{
		Window:     input.Window,
		BlocksOnly: input.BlocksOnly,
	})
	if err != nil {
		return nil, RescanOutput{}, err
	}
	return nil, RescanOutput{
		Summary:   report.String(),
		BlockHits: report.BlockHits,
		Proposed:  report.Proposed,
		Cancelled: report.Cancelled,
	}, nil
}

func (s *Server) handleListPending(ctx context.Context, req *sdk.CallToolRequest, input ListPendingInput) (*sdk.CallToolResult, ListPendingOutput, error) {
	return nil, ListPendingOutput{Changes: changeOutputs(s.ctrl.PendingChanges())}, nil
}

func (s *Server) handleAccept(ctx context.Context, req *sdk.CallToolRequest, input ChangeIDInput) (*sdk.CallToolResult, ReviewOutput, error) {
	if input.ID == "" {
		return nil, ReviewOutput{}, fmt.Errorf("id is required")
	}
	if err := s.ctrl.Accept(input.ID); err != nil {
		return nil, ReviewOutput{}, err
	}
	return nil, ReviewOutput{Applied: 1, Pending: len(s.ctrl.PendingChanges())}, nil
}

func (s *Server) handleDeny(ctx context.Context, req *sdk.CallToolRequest, input ChangeIDInput) (*sdk.CallToolResult, ReviewOutput, error) {
	if input.ID == "" {
		return nil, ReviewOutput{}, fmt.Errorf("id is required")
	}
	if err := s.ctrl.Deny(input.ID); err != nil {
		return nil, ReviewOutput{}, err
	}
	return nil, ReviewOutput{Discarded: 1, Pending: len(s.ctrl.PendingChanges())}, nil
}

func (s *Server) handleAcceptAll(ctx context.Context, req *sdk.CallToolRequest, input ListPendingInput) (*sdk.CallToolResult, ReviewOutput, error) {
	applied, errs := s.ctrl.AcceptAll()
	out := ReviewOutput{Applied: applied, Pending: len(s.ctrl.PendingChanges())}
	for _, err := range errs {
		out.Errors = append(out.Errors, err.Error())
	}
	return nil, out, nil
}

func (s *Server) handleDenyAll(ctx context.Context, req *sdk.CallToolRequest, input ListPendingInput) (*sdk.CallToolResult, ReviewOutput, error) {
	discarded := s.ctrl.DenyAll()
	return nil, ReviewOutput{Discarded: discarded, Pending: 0}, nil
}

func (s *Server) handleSummary(ctx context.Context, req *sdk.CallToolRequest, input SummaryInput) (*sdk.CallToolResult, SummaryOutput, error) {
	return nil, SummaryOutput{Summary: s.ctrl.Summary()}, nil
}

func changeOutputs(items []*review.Change) []ChangeOutput {
	out := make([]ChangeOutput, 0, len(items))
	for _, item := range items {
		out = append(out, ChangeOutput{
			ID:          item.ID,
			Kind:        item.Kind,
			EntityKey:   item.EntityKey,
			Description: item.Description,
			Previous:    item.Previous,
			Proposed:    item.Proposed,
		})
	}
	return out
}
