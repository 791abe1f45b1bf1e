package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// Phase is the state of a creation flow.
type Phase string

// Creation flow phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
)

// FlowState is what the presentation renders for a creation flow.
type FlowState struct {
	Collection  string            `json:"collection"`
	Phase       Phase             `json:"phase"`
	FormVisible bool              `json:"formVisible"`
	Draft       any               `json:"draft,omitempty"`
	Error       string            `json:"error,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Editor is the operator entry point into one collection's creation flow.
type Editor interface {
	State() FlowState
	StartCreate() (FlowState, error)
	UpdateField(name, value string) (FlowState, error)
	AddTag(list, value string) (FlowState, error)
	RemoveTag(list string, index int) (FlowState, error)
	Submit(ctx context.Context) (model.Key, error)
	Cancel() (FlowState, error)
}

// DraftValue is a draft whose edits return new values.
type DraftValue[D any] interface {
	Key() model.Key
	SetField(name, value string) (D, error)
	AppendTag(list, value string) (D, error)
	RemoveTag(list string, index int) (D, error)
}

// FlowConfig wires a Flow to its collection.
type FlowConfig[D DraftValue[D]] struct {
	Collection string
	Namespace  string
	// Ready returns nil once the collection's live view holds a good
	// snapshot.
	Ready func() error
	// Start allocates an identifier and returns a fresh draft.
	Start func() D
	// Validate converts a draft into the record to write.
	Validate   func(D) (any, error)
	Dispatcher *Dispatcher
}

// Flow runs the creation state machine of one operator for one collection:
// idle -> editing -> submitting -> idle, falling back to editing with the
// draft intact on any failure.
type Flow[D DraftValue[D]] struct {
	cfg FlowConfig[D]

	mu      sync.Mutex
	phase   Phase
	draft   D
	lastErr error
}

// NewFlow creates an idle flow.
func NewFlow[D DraftValue[D]](cfg FlowConfig[D]) *Flow[D] {
	return &Flow[D]{
		cfg:   cfg,
		phase: PhaseIdle,
	}
}

// State returns the current flow state.
func (f *Flow[D]) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// StartCreate discards any draft and starts a new one with a freshly
// allocated identifier.
func (f *Flow[D]) StartCreate() (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == PhaseSubmitting {
		return f.stateLocked(), ErrSubmitInFlight
	}
	if f.cfg.Ready != nil {
		if err := f.cfg.Ready(); err != nil {
			return f.stateLocked(), err
		}
	}

	f.draft = f.cfg.Start()
	f.phase = PhaseEditing
	f.lastErr = nil

	return f.stateLocked(), nil
}

// UpdateField replaces one scalar draft field.
func (f *Flow[D]) UpdateField(name, value string) (FlowState, error) {
	return f.edit(func(d D) (D, error) { return d.SetField(name, value) })
}

// AddTag appends to a list field of the draft.
func (f *Flow[D]) AddTag(list, value string) (FlowState, error) {
	return f.edit(func(d D) (D, error) { return d.AppendTag(list, value) })
}

// RemoveTag removes an entry from a list field of the draft.
func (f *Flow[D]) RemoveTag(list string, index int) (FlowState, error) {
	return f.edit(func(d D) (D, error) { return d.RemoveTag(list, index) })
}

func (f *Flow[D]) edit(op func(D) (D, error)) (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return f.stateLocked(), err
	}

	next, err := op(f.draft)
	if err != nil {
		return f.stateLocked(), err
	}
	f.draft = next

	return f.stateLocked(), nil
}

// Submit validates the draft and writes it. The lock is not held during the
// write; the submitting phase rejects concurrent edits and submissions. On
// success the draft is discarded and the form closed; the new record shows
// up in the live view only once the store echoes it back.
func (f *Flow[D]) Submit(ctx context.Context) (model.Key, error) {
	f.mu.Lock()

	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return "", err
	}

	draft := f.draft
	record, err := f.cfg.Validate(draft)
	if err != nil {
		f.lastErr = err
		draftRejections.WithLabelValues(f.cfg.Collection, rejectionReason(err)).Inc()
		f.mu.Unlock()
		return "", err
	}

	f.phase = PhaseSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	err = f.cfg.Dispatcher.Create(ctx, f.cfg.Namespace, draft.Key(), record)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.phase = PhaseEditing
		f.lastErr = err
		return "", err
	}

	var zero D
	f.draft = zero
	f.phase = PhaseIdle

	return draft.Key(), nil
}

// Cancel discards the draft and closes the form.
func (f *Flow[D]) Cancel() (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == PhaseSubmitting {
		return f.stateLocked(), ErrSubmitInFlight
	}

	var zero D
	f.draft = zero
	f.phase = PhaseIdle
	f.lastErr = nil

	return f.stateLocked(), nil
}

func (f *Flow[D]) editableLocked() error {
	switch f.phase {
	case PhaseSubmitting:
		return ErrSubmitInFlight
	case PhaseIdle:
		return ErrNoDraft
	default:
		return nil
	}
}

func (f *Flow[D]) stateLocked() FlowState {
	state := FlowState{
		Collection:  f.cfg.Collection,
		Phase:       f.phase,
		FormVisible: f.phase != PhaseIdle,
	}
	if f.phase != PhaseIdle {
		state.Draft = f.draft
	}
	if f.lastErr != nil {
		state.Error = f.lastErr.Error()
		var verr *ValidationError
		if errors.As(f.lastErr, &verr) {
			state.Fields = verr.Fields
		}
	}
	return state
}

func rejectionReason(err error) string {
	var refErr *ReferentialError
	if errors.As(err, &refErr) {
		return "referential"
	}
	return "validation"
}
