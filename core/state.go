package core

import "time"

// AgentState is the mutable per-agent execution state: an ordered event
// history, the set of tool invocations awaiting approval, and a key/value
// scratch area handlers may use across events.
//
// Contract: AgentState is confined to the worker goroutine. It carries no
// internal locking because event handling for one agent is strictly
// serialized; nothing outside the worker may touch it. Snapshot methods
// return defensive copies so observers taken inside a handler cannot be
// mutated later.
type AgentState struct {
	AgentName        string
	History          []*Event
	PendingApprovals map[string]*ToolInvocationRequest
	State            map[string]any
	Created          time.Time
	Updated          time.Time
}

// NewAgentState creates empty state for the named agent.
func NewAgentState(agentName string) *AgentState {
	now := time.Now().UTC()
	return &AgentState{
		AgentName:        agentName,
		History:          []*Event{},
		PendingApprovals: map[string]*ToolInvocationRequest{},
		State:            map[string]any{},
		Created:          now,
		Updated:          now,
	}
}

// AddEvent appends an event to the history.
func (s *AgentState) AddEvent(ev *Event) {
	s.History = append(s.History, ev)
	s.Updated = time.Now().UTC()
}

// HistorySnapshot returns a defensive copy of the event history.
func (s *AgentState) HistorySnapshot() []*Event {
	events := make([]*Event, len(s.History))
	copy(events, s.History)
	return events
}

// Get returns the value and existence flag for a scratch-state key.
func (s *AgentState) Get(key string) (any, bool) {
	v, ok := s.State[key]
	return v, ok
}

// Set stores a key/value pair in the scratch state.
func (s *AgentState) Set(key string, value any) {
	s.State[key] = value
	s.Updated = time.Now().UTC()
}

// AddPendingApproval registers a tool invocation awaiting user consent.
func (s *AgentState) AddPendingApproval(req *ToolInvocationRequest) {
	if req == nil || req.InvocationID == "" {
		return
	}
	s.PendingApprovals[req.InvocationID] = req
	s.Updated = time.Now().UTC()
}

// ResolvePendingApproval removes and returns the pending invocation for
// invocationID. The second return reports whether it existed.
func (s *AgentState) ResolvePendingApproval(invocationID string) (*ToolInvocationRequest, bool) {
	req, ok := s.PendingApprovals[invocationID]
	if ok {
		delete(s.PendingApprovals, invocationID)
		s.Updated = time.Now().UTC()
	}
	return req, ok
}

// PendingApprovalCount returns the number of unresolved approvals.
func (s *AgentState) PendingApprovalCount() int { return len(s.PendingApprovals) }
