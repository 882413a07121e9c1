// Package conversation tracks the per-operator multi-step flows behind the
// admin panel: each operator has at most one awaited input at a time.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/domain"
)

// Flow identifies what input an operator's next message is expected to carry.
type Flow string

// The conversation flows the admin panel can start.
const (
	FlowWelcomeText  Flow = "welcome_text"
	FlowWelcomeImage Flow = "welcome_image"
	FlowURLField     Flow = "url_field"
	FlowAdminGroup   Flow = "admin_group"
	FlowBroadcast    Flow = "broadcast"
	FlowCommunityRef Flow = "community_ref"
)

// State is one operator's awaited input. Scope disambiguates flows that are
// reused for several settings fields (e.g. which URL is being edited).
type State struct {
	Flow  Flow
	Scope string
}

// Result describes how a handler disposed of the operator's input.
type Result int

const (
	// Completed consumes the input and ends the flow.
	Completed Result = iota
	// Retry keeps the flow armed; the operator is asked to send again.
	Retry
	// Aborted ends the flow without committing anything.
	Aborted
)

// HandlerFunc processes the operator's input for one flow.
type HandlerFunc func(ctx context.Context, operatorID int64, state State, payload domain.Payload) (Result, error)

// Manager owns the per-operator conversation state and dispatches inputs to
// the handler registered for the active flow.
type Manager struct {
	mu       sync.Mutex
	states   map[int64]State
	handlers map[Flow]HandlerFunc
	logger   *logrus.Entry
}

// NewManager constructs an empty conversation manager.
func NewManager(logger *logrus.Entry) *Manager {
	return &Manager{
		states:   make(map[int64]State),
		handlers: make(map[Flow]HandlerFunc),
		logger:   logger,
	}
}

// Register installs the handler for a flow. Registering twice replaces the
// earlier handler.
func (m *Manager) Register(flow Flow, handler HandlerFunc) error {
	if m == nil {
		return errors.New("conversation manager is not initialized")
	}
	if flow == "" {
		return errors.New("flow is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[flow] = handler
	return nil
}

// Begin arms a flow for the operator. Starting a new flow replaces any
// earlier one: an operator never has two awaited inputs.
func (m *Manager) Begin(operatorID int64, state State) error {
	if m == nil {
		return errors.New("conversation manager is not initialized")
	}
	if operatorID == 0 {
		return errors.New("operator id is required")
	}
	if state.Flow == "" {
		return errors.New("flow is required")
	}

	m.mu.Lock()
	m.states[operatorID] = state
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"event":   "conversation_begin",
			"user_id": operatorID,
			"flow":    string(state.Flow),
		}).Debug("conversation flow armed")
	}

	return nil
}

// Cancel drops the operator's active flow and reports whether one existed.
func (m *Manager) Cancel(operatorID int64) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[operatorID]; !ok {
		return false
	}
	delete(m.states, operatorID)
	return true
}

// Active returns the operator's awaited input, if any.
func (m *Manager) Active(operatorID int64) (State, bool) {
	if m == nil {
		return State{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[operatorID]
	return state, ok
}

// Consume routes the operator's message to the active flow's handler. It
// reports false when the operator has no flow armed, in which case the
// message should fall through to normal command handling. The flow is
// cleared on Completed and Aborted, and kept armed on Retry, unless the
// handler itself started a different flow, which then takes precedence.
func (m *Manager) Consume(ctx context.Context, operatorID int64, payload domain.Payload) (bool, Result, error) {
	if m == nil {
		return false, Aborted, errors.New("conversation manager is not initialized")
	}
	if ctx == nil {
		return false, Aborted, errors.New("context is required")
	}

	m.mu.Lock()
	state, ok := m.states[operatorID]
	var handler HandlerFunc
	if ok {
		handler = m.handlers[state.Flow]
	}
	m.mu.Unlock()

	if !ok {
		return false, Aborted, nil
	}
	if handler == nil {
		m.Cancel(operatorID)
		return true, Aborted, fmt.Errorf("no handler registered for flow %q", state.Flow)
	}

	result, err := handler(ctx, operatorID, state, payload)

	if result != Retry {
		m.mu.Lock()
		if current, still := m.states[operatorID]; still && current == state {
			delete(m.states, operatorID)
		}
		m.mu.Unlock()
	}

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"event":   "conversation_consumed",
			"user_id": operatorID,
			"flow":    string(state.Flow),
			"result":  int(result),
		}).Debug("conversation input handled")
	}

	return true, result, err
}
