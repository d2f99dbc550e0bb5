// Package session tracks per-(user, chat) conversational state across the
// multi-turn flow of a request: collecting details, clarifying ambiguity,
// confirming a plan, executing it. Sessions are owned by the Registry and
// mutated only through their methods.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/nlp"
)

// State is one phase of the multi-turn flow.
type State string

const (
	StateInitial              State = "initial"
	StateGatheringDetails     State = "gathering_details"
	StateClarifying           State = "clarifying"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateExecuting            State = "executing"
	StateComplete             State = "complete"
)

// DefaultMaxFollowUps bounds how many follow-up questions a single flow may
// ask before the orchestrator must proceed with what it has.
const DefaultMaxFollowUps = 3

// validTransitions is the closed set of allowed state changes. Complete is
// terminal; a session only leaves it through Reset.
var validTransitions = map[State][]State{
	StateInitial:              {StateGatheringDetails, StateClarifying, StateAwaitingConfirmation, StateExecuting},
	StateGatheringDetails:     {StateGatheringDetails, StateClarifying, StateAwaitingConfirmation, StateExecuting},
	StateClarifying:           {StateGatheringDetails, StateAwaitingConfirmation, StateExecuting},
	StateAwaitingConfirmation: {StateClarifying, StateExecuting, StateComplete},
	StateExecuting:            {StateComplete},
	StateComplete:             {},
}

// InvalidTransitionError reports a state change outside the transition
// table.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session: invalid transition from %q to %q", e.From, e.To)
}

// Session is the scratchpad for one in-flight multi-turn request. The state
// field moves only through Transition; the data payload (CollectedData,
// PendingPlan, Preview) is a freely mutable scratch area for the
// orchestrator.
type Session struct {
	mu sync.Mutex

	UserID string
	ChatID string

	state        State
	StartedAt    time.Time
	LastActivity time.Time

	Intent          string
	TargetPath      string
	OriginalMessage string
	CollectedData   map[string]any
	FollowUpCount   int
	MaxFollowUps    int
	LastQuestion    string
	ClarifyOptions  []string
	PendingPlan     *nlp.Plan
	Preview         string

	now func() time.Time // injectable for tests
}

// newSession creates a fresh INITIAL session for the given identity.
func newSession(userID, chatID string, now func() time.Time) *Session {
	t := now()
	return &Session{
		UserID:        userID,
		ChatID:        chatID,
		state:         StateInitial,
		StartedAt:     t,
		LastActivity:  t,
		CollectedData: make(map[string]any),
		MaxFollowUps:  DefaultMaxFollowUps,
		now:           now,
	}
}

// State returns the current flow phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to a new state, rejecting changes outside
// the transition table. Refreshes last_activity on success.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			s.state = to
			s.LastActivity = s.now()
			return nil
		}
	}
	return &InvalidTransitionError{From: s.state, To: to}
}

// IsExpired reports whether the session has been idle strictly longer than
// the timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.LastActivity) > timeout
}

// CanAskMoreQuestions reports whether the follow-up budget still has room.
func (s *Session) CanAskMoreQuestions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FollowUpCount < s.MaxFollowUps
}

// RecordFollowUp counts one asked follow-up question and refreshes
// activity. It does not cap itself; callers gate on CanAskMoreQuestions.
func (s *Session) RecordFollowUp(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FollowUpCount++
	s.LastQuestion = question
	s.LastActivity = s.now()
}

// ApplyAnswers merges a field→value answer map into the collected data.
// Answers may arrive asynchronously; merging never blocks on the flow.
func (s *Session) ApplyAnswers(answers map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CollectedData == nil {
		s.CollectedData = make(map[string]any, len(answers))
	}
	for k, v := range answers {
		s.CollectedData[k] = v
	}
	s.LastActivity = s.now()
}

// Touch refreshes last_activity without other changes.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = s.now()
}

// Reset returns the session to INITIAL for a new flow, clearing the
// request-scoped payload while preserving identity. Both timestamps restart
// at now.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	s.state = StateInitial
	s.StartedAt = t
	s.LastActivity = t
	s.Intent = ""
	s.TargetPath = ""
	s.OriginalMessage = ""
	s.CollectedData = make(map[string]any)
	s.FollowUpCount = 0
	s.LastQuestion = ""
	s.ClarifyOptions = nil
	s.PendingPlan = nil
	s.Preview = ""
}
