// Package mocks provides shared test doubles for the collaborator interfaces
// in core.
package mocks

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
)

// Repository is a map-backed core.CertificateRepository.
type Repository struct {
	targets map[string]*core.CertificateTarget
}

// NewRepository builds a Repository holding the given targets.
func NewRepository(targets ...*core.CertificateTarget) *Repository {
	r := &Repository{targets: make(map[string]*core.CertificateTarget)}
	for _, target := range targets {
		r.Add(target)
	}
	return r
}

// Add inserts or replaces one target record.
func (r *Repository) Add(target *core.CertificateTarget) {
	r.targets[target.Serial.Text(16)] = target
}

// FindBySerial implements core.CertificateRepository.
func (r *Repository) FindBySerial(_ context.Context, serial *big.Int) (*core.CertificateTarget, error) {
	target, ok := r.targets[serial.Text(16)]
	if !ok {
		return nil, rerrors.NotFoundError("no certificate record for serial %s", core.AuditSerialHex(serial))
	}
	return target, nil
}

// SearchByFilter implements core.CertificateRepository. It understands the
// same "key=value" terms as the real repository, but only the status key.
func (r *Repository) SearchByFilter(_ context.Context, filter string, maxResults int, _ time.Duration) ([]*core.CertificateTarget, error) {
	var want core.CertStatus
	for _, term := range strings.Split(filter, ",") {
		k, v, found := strings.Cut(term, "=")
		if !found || k != "status" {
			return nil, rerrors.MalformedError("unsupported filter term %q", term)
		}
		want = core.CertStatus(v)
	}

	var out []*core.CertificateTarget
	for _, target := range r.targets {
		if target.Status == want {
			out = append(out, target)
		}
		if maxResults > 0 && len(out) == maxResults {
			break
		}
	}
	return out, nil
}

// CA is a fixed-list core.CAFacade.
type CA struct {
	Points []core.IssuingPointRef
}

// IssuingPoints implements core.CAFacade.
func (ca *CA) IssuingPoints() []core.IssuingPointRef {
	return ca.Points
}

// RA is a core.RAFacade that matches on the target's recorded enrollment
// request id.
type RA struct{}

// OriginatedFrom implements core.RAFacade.
func (RA) OriginatedFrom(target *core.CertificateTarget, requestID string) bool {
	return target.EnrollmentRequestID == requestID
}

// Publisher is a fixed-answer core.Publisher.
type Publisher struct {
	Enabled bool
}

// LDAPEnabled implements core.Publisher.
func (p *Publisher) LDAPEnabled() bool {
	return p.Enabled
}

// Queue is a scriptable core.RequestQueue. Service is invoked by Submit to
// mutate the request into its post-servicing shape; tests assign whatever
// behavior the scenario needs. A nil Service marks requests complete and
// successful without any further detail.
type Queue struct {
	Service   func(req *core.RevocationRequest)
	SubmitErr error

	nextID    int
	Submitted []*core.RevocationRequest
	requests  map[string]*core.RevocationRequest
}

// NewRequest implements core.RequestQueue.
func (q *Queue) NewRequest(_ context.Context, typ core.RequestType) (*core.RevocationRequest, error) {
	q.nextID++
	req := &core.RevocationRequest{
		ID:     fmt.Sprintf("%d", q.nextID),
		Type:   typ,
		Status: core.RequestInitial,
		Ext:    make(map[string]string),
	}
	if q.requests == nil {
		q.requests = make(map[string]*core.RevocationRequest)
	}
	q.requests[req.ID] = req
	return req, nil
}

// Submit implements core.RequestQueue.
func (q *Queue) Submit(_ context.Context, req *core.RevocationRequest) (*core.RevocationRequest, error) {
	if q.SubmitErr != nil {
		return nil, q.SubmitErr
	}
	q.Submitted = append(q.Submitted, req)
	if q.Service != nil {
		q.Service(req)
	} else {
		req.Status = core.RequestComplete
		req.Result = core.ResultSuccess
	}
	return req, nil
}

// FindRequest implements core.RequestQueue.
func (q *Queue) FindRequest(_ context.Context, id string) (*core.RevocationRequest, error) {
	req, ok := q.requests[id]
	if !ok {
		return nil, rerrors.NotFoundError("no request with id %q", id)
	}
	return req, nil
}
