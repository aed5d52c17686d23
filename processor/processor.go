// Package processor implements the certificate revocation/unrevocation
// request core: building validated revocation requests, submitting them to
// the authority's request queue, interpreting the resulting status, rolling
// up CRL and directory-publishing results, and emitting the paired audit
// events the security audit trail requires.
package processor

import (
	"context"
	"math/big"
	"time"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/revocation"
)

// Processor coordinates the revocation request lifecycle against its
// collaborators. It holds no locks of its own: the repository and queue own
// their concurrency discipline, and each Process call runs entirely on the
// calling goroutine.
type Processor struct {
	repo  core.CertificateRepository
	queue core.RequestQueue
	scope core.AuthorityScope
	// pub may be nil, in which case directory publishing is reported
	// disabled.
	pub   core.Publisher
	audit auditor
	log   blog.Logger
	clk   clock.Clock

	requests    *prometheus.CounterVec
	crlFailures *prometheus.CounterVec
}

// New constructs a Processor and registers its metrics.
func New(
	repo core.CertificateRepository,
	queue core.RequestQueue,
	scope core.AuthorityScope,
	pub core.Publisher,
	logger blog.Logger,
	clk clock.Clock,
	stats prometheus.Registerer,
) *Processor {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revocation_requests",
		Help: "Revocation/unrevocation operations processed, by request type and result",
	}, []string{"type", "result"})
	stats.MustRegister(requests)

	crlFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crl_issuing_point_failures",
		Help: "Per-issuing-point CRL update/publish failures observed during aggregation",
	}, []string{"issuing_point", "stage"})
	stats.MustRegister(crlFailures)

	return &Processor{
		repo:        repo,
		queue:       queue,
		scope:       scope,
		pub:         pub,
		audit:       auditor{log: logger, clk: clk},
		log:         logger,
		clk:         clk,
		requests:    requests,
		crlFailures: crlFailures,
	}
}

// Request is one revocation or unrevocation operation. The reason alone
// decides the path: removeFromCRL routes to unrevocation no matter which
// entry point built the Request.
type Request struct {
	// Targets are the candidate certificates, usually resolved via
	// SelectTargets, processed in the order given.
	Targets []*core.CertificateTarget
	Reason  revocation.Reason
	// InvalidityDate, when non-nil, is attached to every certificate in the
	// batch as a CRL entry extension.
	InvalidityDate *time.Time
	Comments       string
	Requestor      core.RequestorType
	// SubjectID and RequesterID identify the authenticated caller for the
	// audit trail.
	SubjectID   string
	RequesterID string
	// CACertOperation marks the explicit CA-certificate entry point, the
	// only path allowed to revoke system certificates.
	CACertOperation bool
}

// Process runs one operation end to end. The returned error is non-nil only
// when no Outcome could be produced (validation or submission failure); a
// request that was serviced with failures still yields an Outcome describing
// them. Audit invariant: every call emits at most one request event and at
// most one processed event, the latter exactly when the request reached a
// final status.
func (p *Processor) Process(ctx context.Context, in Request) (*Outcome, error) {
	if revocation.RoutesToUnrevocation(in.Reason) {
		return p.processUnrevocation(ctx, in)
	}
	return p.processRevocation(ctx, in)
}

func (p *Processor) processRevocation(ctx context.Context, in Request) (*Outcome, error) {
	fail := func(err error) (*Outcome, error) {
		p.audit.request(auditFailure, in, core.TypeRevocation, targetSerials(in.Targets))
		p.requests.WithLabelValues(string(core.TypeRevocation), outcomeError).Inc()
		return nil, err
	}

	exts, err := revocation.BuildEntryExtensions(in.Reason, in.InvalidityDate)
	if err != nil {
		return fail(rerrors.InternalServerError("building CRL entry extensions: %s", err))
	}

	eligible, skipped, err := buildRevocationBatch(in.Targets, in.Reason, in.CACertOperation, exts)
	if err != nil {
		return fail(err)
	}

	if len(eligible) == 0 {
		// Every target was already revoked: succeed without touching the
		// queue.
		p.audit.request(auditSuccess, in, core.TypeRevocation, targetSerials(in.Targets))
		p.requests.WithLabelValues(string(core.TypeRevocation), OutcomeSuccess.String()).Inc()
		return &Outcome{Kind: OutcomeSuccess, Skipped: skipped}, nil
	}

	req, err := p.queue.NewRequest(ctx, core.TypeRevocation)
	if err != nil {
		return fail(rerrors.SubmissionError("creating revocation request: %s", err))
	}
	req.Requestor = in.Requestor
	req.Reason = in.Reason
	req.Comments = in.Comments
	req.RevokedCerts = eligible
	req.Propagated = p.scope.Kind == core.KindRA

	return p.submitAndResolve(ctx, in, req, skipped)
}

func (p *Processor) processUnrevocation(ctx context.Context, in Request) (*Outcome, error) {
	fail := func(err error) (*Outcome, error) {
		p.audit.request(auditFailure, in, core.TypeUnrevocation, targetSerials(in.Targets))
		p.requests.WithLabelValues(string(core.TypeUnrevocation), outcomeError).Inc()
		return nil, err
	}

	serials, err := validateUnrevocationBatch(in.Targets)
	if err != nil {
		return fail(err)
	}

	req, err := p.queue.NewRequest(ctx, core.TypeUnrevocation)
	if err != nil {
		return fail(rerrors.SubmissionError("creating unrevocation request: %s", err))
	}
	req.Requestor = in.Requestor
	req.Reason = in.Reason
	req.Comments = in.Comments
	req.Serials = serials
	req.Propagated = p.scope.Kind == core.KindRA

	return p.submitAndResolve(ctx, in, req, nil)
}

// submitAndResolve enqueues the built request, interprets the result, rolls
// up CRL/publishing status on success, and emits the audit event pair. The
// submitted flag governs which event kind a failure produces: before a
// successful enqueue, errors audit as a failed request; after it, as a failed
// processing.
func (p *Processor) submitAndResolve(ctx context.Context, in Request, req *core.RevocationRequest, skipped []SkipNote) (*Outcome, error) {
	serviced, err := p.queue.Submit(ctx, req)
	if err != nil {
		// Not submitted: the request event itself reports the failure.
		p.audit.request(auditFailure, in, req.Type, req.TargetSerials())
		p.requests.WithLabelValues(string(req.Type), outcomeError).Inc()
		return nil, rerrors.SubmissionError("submitting %s request: %s", req.Type, err)
	}

	// Submission succeeded; from here on the request event is a success and
	// any failure belongs to the processed event.
	p.audit.request(auditSuccess, in, serviced.Type, serviced.TargetSerials())

	outcome := interpretOutcome(serviced)
	outcome.Skipped = skipped

	switch outcome.Kind {
	case OutcomeSuccess:
		if p.scope.Kind == core.KindCA {
			outcome.CRL = p.AggregateCRLStatus(serviced)
			outcome.Publishing = p.AggregateDirectoryPublishing(serviced)
		}
		if serviced.Status.Final() {
			p.audit.processed(auditSuccess, in, serviced, nil)
		}
	case OutcomeServiceError:
		p.audit.processed(auditFailure, in, serviced, serviceErrorEntries(serviced))
	case OutcomePending:
		// Awaiting agent approval: no processed event until an approval
		// workflow resolves the request.
		p.log.Infof("request %s pending agent approval", serviced.ID)
	default:
		if serviced.Status.Final() {
			p.audit.processed(auditFailure, in, serviced, nil)
		}
	}

	p.requests.WithLabelValues(string(serviced.Type), outcome.Kind.String()).Inc()
	return outcome, nil
}

func targetSerials(targets []*core.CertificateTarget) []*big.Int {
	serials := make([]*big.Int, 0, len(targets))
	for _, target := range targets {
		serials = append(serials, target.Serial)
	}
	return serials
}
