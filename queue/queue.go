// Package queue provides an in-memory request queue implementing the
// asynchronous request pipeline the processor submits to. Requests are either
// serviced inline on Submit or parked pending agent approval, in which case a
// later Approve, Reject or Cancel call resolves them. The queue owns every
// status transition; submitters only ever read request state back.
package queue

import (
	"context"
	"strconv"
	"sync"

	"github.com/jmhodges/clock"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	blog "github.com/cms-pki/revproc/log"
)

// A Servicer performs the actual work of a request: flipping repository
// status, regenerating CRLs, publishing to the directory. It records
// per-issuing-point and per-certificate results on the request as it goes. A
// returned error marks the request complete-with-error rather than failing
// the submission.
type Servicer interface {
	Service(ctx context.Context, req *core.RevocationRequest) error
}

// ServiceFunc adapts a function to the Servicer interface.
type ServiceFunc func(ctx context.Context, req *core.RevocationRequest) error

func (f ServiceFunc) Service(ctx context.Context, req *core.RevocationRequest) error {
	return f(ctx, req)
}

// Memory is an in-memory core.RequestQueue.
type Memory struct {
	mu       sync.Mutex
	clk      clock.Clock
	log      blog.Logger
	servicer Servicer
	// requireApproval parks every submission in pending until an agent
	// resolves it, modeling the manual-approval deployment profile.
	requireApproval bool

	nextID   int64
	requests map[string]*core.RevocationRequest
}

// NewMemory constructs an empty queue. With requireApproval set, Submit
// parks requests as pending instead of servicing them inline.
func NewMemory(clk clock.Clock, logger blog.Logger, servicer Servicer, requireApproval bool) *Memory {
	return &Memory{
		clk:             clk,
		log:             logger,
		servicer:        servicer,
		requireApproval: requireApproval,
		requests:        make(map[string]*core.RevocationRequest),
	}
}

// NewRequest implements core.RequestQueue.
func (q *Memory) NewRequest(_ context.Context, typ core.RequestType) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	req := &core.RevocationRequest{
		ID:     strconv.FormatInt(q.nextID, 10),
		Type:   typ,
		Status: core.RequestInitial,
		Ext:    make(map[string]string),
	}
	q.requests[req.ID] = req
	return req, nil
}

// Submit implements core.RequestQueue. The call blocks until the request is
// serviced or parked; ctx cancellation aborts servicing.
func (q *Memory) Submit(ctx context.Context, req *core.RevocationRequest) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, ok := q.requests[req.ID]
	if !ok || stored != req {
		return nil, rerrors.SubmissionError("request %q was not created by this queue", req.ID)
	}
	if req.Status != core.RequestInitial {
		return nil, rerrors.SubmissionError("request %q was already submitted", req.ID)
	}

	if req.Propagated {
		// Forwarded to the upstream CA; nothing to service locally.
		req.Status = core.RequestServicePending
		return req, nil
	}

	if q.requireApproval {
		req.Status = core.RequestPending
		q.log.Infof("request %s parked for agent approval", req.ID)
		return req, nil
	}

	q.service(ctx, req)
	return req, nil
}

// service runs the servicer and records the terminal state. Callers must
// hold q.mu.
func (q *Memory) service(ctx context.Context, req *core.RevocationRequest) {
	if err := ctx.Err(); err != nil {
		req.Status = core.RequestComplete
		req.Result = core.ResultError
		req.ServiceErrors = append(req.ServiceErrors, err.Error())
		return
	}

	start := q.clk.Now()
	err := q.servicer.Service(ctx, req)
	req.Status = core.RequestComplete
	if err != nil {
		req.Result = core.ResultError
		req.ServiceErrors = append(req.ServiceErrors, err.Error())
		q.log.Errf("request %s completed with service errors: %s", req.ID, err)
		return
	}
	req.Result = core.ResultSuccess
	q.log.Infof("request %s serviced in %s", req.ID, q.clk.Since(start))
}

// FindRequest implements core.RequestQueue.
func (q *Memory) FindRequest(_ context.Context, id string) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.requests[id]
	if !ok {
		return nil, rerrors.NotFoundError("no request with id %q", id)
	}
	return req, nil
}

// Approve services a pending request on behalf of an agent. Resolutions drive
// the request to a final status, so they land in the audit trail alongside
// the inline-serviced path.
func (q *Memory) Approve(ctx context.Context, id string) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.pending(id)
	if err != nil {
		return nil, err
	}
	q.service(ctx, req)
	q.log.AuditInfof("request %s approved: status=%s result=%d", id, req.Status, req.Result)
	return req, nil
}

// Reject resolves a pending request as rejected.
func (q *Memory) Reject(_ context.Context, id string) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.pending(id)
	if err != nil {
		return nil, err
	}
	req.Status = core.RequestRejected
	q.log.AuditInfof("request %s rejected: status=%s", id, req.Status)
	return req, nil
}

// Cancel resolves a pending request as canceled.
func (q *Memory) Cancel(_ context.Context, id string) (*core.RevocationRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.pending(id)
	if err != nil {
		return nil, err
	}
	req.Status = core.RequestCanceled
	q.log.AuditInfof("request %s canceled: status=%s", id, req.Status)
	return req, nil
}

// pending looks up a request and checks it is resolvable. Callers must hold
// q.mu.
func (q *Memory) pending(id string) (*core.RevocationRequest, error) {
	req, ok := q.requests[id]
	if !ok {
		return nil, rerrors.NotFoundError("no request with id %q", id)
	}
	if req.Status != core.RequestPending {
		return nil, rerrors.SubmissionError("request %q is %s, not pending", id, req.Status)
	}
	return req, nil
}
