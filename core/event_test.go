package core

import (
	"errors"
	"testing"
)

// Event constructor & helper method tests
func TestEvent_ConstructorsAndPayloads(t *testing.T) {
	user := NewUserMessageEvent("hi", Attachment{Name: "notes.txt"})
	if user.Kind != KindUserMessage || user.ID == "" || user.Timestamp.IsZero() {
		t.Fatalf("NewUserMessageEvent envelope malformed: %+v", user)
	}
	if user.UserMessage == nil || user.UserMessage.Content != "hi" || len(user.UserMessage.Attachments) != 1 {
		t.Fatalf("NewUserMessageEvent payload malformed: %+v", user.UserMessage)
	}

	peer := NewAgentMessageEvent("planner", "route this")
	if peer.Kind != KindAgentMessage || peer.AgentMessage == nil || peer.AgentMessage.From != "planner" {
		t.Fatalf("NewAgentMessageEvent malformed: %+v", peer)
	}

	req := NewToolRequestEvent("inv-1", "search", map[string]any{"q": "go"})
	if req.ToolRequest == nil || req.ToolRequest.InvocationID != "inv-1" || req.ToolRequest.ToolName != "search" {
		t.Fatalf("NewToolRequestEvent malformed: %+v", req)
	}

	resOK := NewToolResultEvent("inv-1", 42, nil)
	if resOK.ToolResult == nil || resOK.ToolResult.Result.(int) != 42 || resOK.ToolResult.Error != "" {
		t.Fatalf("Tool result success extraction failed: %+v", resOK.ToolResult)
	}

	resErr := NewToolResultEvent("inv-2", nil, errors.New("boom"))
	if resErr.ToolResult.Error == "" {
		t.Fatalf("Expected error message in tool result: %+v", resErr.ToolResult)
	}

	appr := NewToolApprovalEvent("inv-1", true, "looks safe")
	if appr.ToolApproval == nil || !appr.ToolApproval.Approved || appr.ToolApproval.Reason != "looks safe" {
		t.Fatalf("NewToolApprovalEvent malformed: %+v", appr)
	}

	chunk := NewOutputChunkEvent("partial")
	final := NewOutputFinalEvent("done")
	logLine := NewToolLogEvent("tool said hi")
	if chunk.Text == nil || final.Text == nil || logLine.Text == nil {
		t.Fatal("Output constructors must populate Text payload")
	}
	if chunk.Kind != KindOutputChunk || final.Kind != KindOutputFinal || logLine.Kind != KindToolLog {
		t.Fatalf("Output kinds wrong: %s %s %s", chunk.Kind, final.Kind, logLine.Kind)
	}
}

func TestEvent_BootstrapDetection(t *testing.T) {
	boot := NewBootstrapEvent()
	if !boot.IsBootstrap() {
		t.Fatalf("NewBootstrapEvent not recognized as bootstrap: %+v", boot)
	}

	wakeup := NewSystemEvent("wakeup", nil)
	if wakeup.IsBootstrap() {
		t.Error("Non-bootstrap system event flagged as bootstrap")
	}

	user := NewUserMessageEvent("hi")
	if user.IsBootstrap() {
		t.Error("User message flagged as bootstrap")
	}

	var nilEv *Event
	if nilEv.IsBootstrap() {
		t.Error("nil event flagged as bootstrap")
	}
}

func TestEvent_Valid(t *testing.T) {
	valid := []*Event{
		NewUserMessageEvent("hi"),
		NewAgentMessageEvent("peer", "msg"),
		NewToolRequestEvent("inv", "tool", nil),
		NewToolResultEvent("inv", nil, nil),
		NewToolApprovalEvent("inv", false, ""),
		NewSystemEvent("wakeup", nil),
		NewOutputChunkEvent("c"),
		NewOutputFinalEvent("f"),
		NewToolLogEvent("l"),
	}
	for _, ev := range valid {
		if !ev.Valid() {
			t.Errorf("Expected valid event kind=%s", ev.Kind)
		}
	}

	missingPayload := &Event{ID: NewID(), Kind: KindUserMessage}
	if missingPayload.Valid() {
		t.Error("Event without payload must be invalid")
	}

	wrongPayload := &Event{ID: NewID(), Kind: KindToolResult, UserMessage: &UserMessage{Content: "x"}}
	if wrongPayload.Valid() {
		t.Error("Event with mismatched payload must be invalid")
	}

	unknownKind := &Event{ID: NewID(), Kind: "mystery"}
	if unknownKind.Valid() {
		t.Error("Unknown kind must be invalid")
	}

	var nilEv *Event
	if nilEv.Valid() {
		t.Error("nil event must be invalid")
	}
}

func TestEvent_StreamEndSentinel(t *testing.T) {
	if !IsStreamEnd(StreamEnd) {
		t.Fatal("StreamEnd must satisfy IsStreamEnd")
	}
	if StreamEnd.Valid() {
		t.Error("StreamEnd must never be a valid event")
	}

	lookalike := &Event{ID: "stream-end"}
	if IsStreamEnd(lookalike) {
		t.Error("Sentinel detection must be by identity, not by ID")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" || seen[id] {
			t.Fatalf("NewID produced empty or duplicate id: %q", id)
		}
		seen[id] = true
	}
}
