package core

import "testing"

func TestAgentState_HistoryAndSnapshot(t *testing.T) {
	s := NewAgentState("tester")
	if s.AgentName != "tester" || s.Created.IsZero() || len(s.History) != 0 {
		t.Fatalf("NewAgentState malformed: %+v", s)
	}

	s.AddEvent(NewUserMessageEvent("one"))
	s.AddEvent(NewUserMessageEvent("two"))

	snap := s.HistorySnapshot()
	if len(snap) != 2 || snap[0].UserMessage.Content != "one" {
		t.Fatalf("HistorySnapshot wrong: %+v", snap)
	}

	// Mutating the snapshot must not affect the state.
	snap[0] = nil
	if s.History[0] == nil {
		t.Error("Snapshot must be a defensive copy")
	}
}

func TestAgentState_Scratch(t *testing.T) {
	s := NewAgentState("tester")

	if _, ok := s.Get("missing"); ok {
		t.Error("Get on empty state must report absence")
	}

	s.Set("counter", 3)
	v, ok := s.Get("counter")
	if !ok || v.(int) != 3 {
		t.Fatalf("Get after Set failed: %v %v", v, ok)
	}
}

func TestAgentState_PendingApprovals(t *testing.T) {
	s := NewAgentState("tester")

	s.AddPendingApproval(&ToolInvocationRequest{InvocationID: "inv-1", ToolName: "search"})
	s.AddPendingApproval(&ToolInvocationRequest{InvocationID: "inv-2", ToolName: "exec"})
	s.AddPendingApproval(nil)
	s.AddPendingApproval(&ToolInvocationRequest{ToolName: "no-id"})

	if s.PendingApprovalCount() != 2 {
		t.Fatalf("Expected 2 pending approvals, got %d", s.PendingApprovalCount())
	}

	req, ok := s.ResolvePendingApproval("inv-1")
	if !ok || req.ToolName != "search" {
		t.Fatalf("ResolvePendingApproval failed: %+v %v", req, ok)
	}
	if s.PendingApprovalCount() != 1 {
		t.Errorf("Resolve must remove the approval, count=%d", s.PendingApprovalCount())
	}

	if _, ok := s.ResolvePendingApproval("inv-1"); ok {
		t.Error("Resolving twice must report absence")
	}
}
