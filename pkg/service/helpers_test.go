package service

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

var (
	userKind       = &record.Kind{Name: "User"}
	membershipKind = &record.Kind{Name: "Membership", Identity: record.CompositeKey{}}
	archivedKind   = &record.Kind{Name: "Archive", SoftDelete: true}
	sessionKind    = &record.Kind{Name: "Session", Identity: record.NoIdentity{}}
)

func user(id, name string) *record.Record {
	return userKind.New(types.Document{"ID": id, "name": name})
}

func membership(left, right string) *record.Record {
	return membershipKind.New(types.Document{"left_id": left, "right_id": right})
}

func async(svc *Service, verb types.Verb, status types.Status, r *record.Record) Action {
	return Action{Type: types.ActionAsync, Verb: verb, Status: status, Service: svc.Name(), Record: r}
}

func success(svc *Service, verb types.Verb, r *record.Record, received any) Action {
	a := async(svc, verb, types.StatusSuccess, r)
	a.Received = received
	return a
}

// recordingExecutor captures requests instead of calling a server.
type recordingExecutor struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (e *recordingExecutor) Execute(_ context.Context, _ *Service, req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return e.err
}
