// Package approval tracks persona change requests awaiting an admin
// decision. State is process-local: requests do not survive a
// restart, and a decision arriving for a request that is gone is a
// stale decision, not an error.
package approval

import (
	"sync"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCreate Kind = "create"
	KindModify Kind = "modify"
	KindAppend Kind = "append"
)

// Request is a pending persona change proposed by a non-privileged
// user. Name is empty for append requests, which always target the
// current default persona.
type Request struct {
	ID            string
	Kind          Kind
	RequesterID   string
	RequesterName string
	Name          string
	Payload       string
}

// Registry holds pending requests plus the binding from the admin's
// review message to the request it represents. The approve/reject
// buttons reuse fixed identifiers, so the message id is the only way
// to recover which request a click refers to.
type Registry struct {
	mu       sync.Mutex
	pending  map[string]*Request
	bindings map[string]string // review message id -> request id
}

func NewRegistry() *Registry {
	return &Registry{
		pending:  make(map[string]*Request),
		bindings: make(map[string]string),
	}
}

// Submit stores a new pending request under a fresh id.
func (r *Registry) Submit(kind Kind, requesterID, requesterName, name, payload string) *Request {
	req := &Request{
		ID:            uuid.NewString(),
		Kind:          kind,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Name:          name,
		Payload:       payload,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[req.ID] = req
	return req
}

// Bind associates the admin's review message with a request.
func (r *Registry) Bind(messageID, requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[messageID] = requestID
}

// Resolve looks up the request bound to a review message without
// removing it. A false result means the binding or the request is
// gone: the decision is stale.
func (r *Registry) Resolve(messageID string) (*Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	requestID, ok := r.bindings[messageID]
	if !ok {
		return nil, false
	}
	req, ok := r.pending[requestID]
	if !ok {
		// Binding outlived its request; drop it so the next click
		// short-circuits.
		delete(r.bindings, messageID)
		return nil, false
	}
	return req, true
}

// Get looks up a pending request by id.
func (r *Registry) Get(requestID string) (*Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.pending[requestID]
	return req, ok
}

// Complete removes the request and every binding pointing at it.
// Calling it twice is a no-op, which is what makes a double-click on
// the review buttons safe.
func (r *Registry) Complete(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, requestID)
	for messageID, id := range r.bindings {
		if id == requestID {
			delete(r.bindings, messageID)
		}
	}
}

// Len reports the number of pending requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
