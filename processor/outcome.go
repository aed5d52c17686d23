package processor

import (
	"math/big"

	"github.com/cms-pki/revproc/core"
)

// OutcomeKind classifies the result of one processed operation.
type OutcomeKind int

const (
	// OutcomeSuccess: the request completed (or propagated upstream) with a
	// success result, or resolved as a trivial no-op with nothing to submit.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeServiceError: the queue completed the request but one or more
	// downstream services failed.
	OutcomeServiceError
	// OutcomePending: the request is parked awaiting agent approval.
	OutcomePending
	// OutcomeRejected: an agent rejected the request.
	OutcomeRejected
	// OutcomeOther covers the remaining statuses (canceled, or anything
	// unexpected the queue reports).
	OutcomeOther
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeServiceError:
		return "serviceError"
	case OutcomePending:
		return "pending"
	case OutcomeRejected:
		return "rejected"
	default:
		return "other"
	}
}

// outcomeError is the metric result label for operations that failed before
// any Outcome could be produced. It belongs to the same label vocabulary as
// the OutcomeKind strings above.
const outcomeError = "error"

// Outcome is the immutable result value handed back to callers, built once
// after interpretation rather than accumulated across branches.
type Outcome struct {
	Kind OutcomeKind
	// Status is the request's final queue status; empty for trivial no-ops
	// that never reached the queue.
	Status core.RequestStatus
	// RequestID is assigned by the queue; empty for trivial no-ops.
	RequestID string
	// Processed lists the serial numbers the request acted on.
	Processed []*big.Int
	// Skipped lists per-certificate exclusions recorded while building the
	// batch.
	Skipped []SkipNote
	// ServiceErrors carries per-service failure detail for
	// OutcomeServiceError.
	ServiceErrors []string
	// CRL and Publishing are populated only on OutcomeSuccess under a CA
	// scope.
	CRL        *CRLStatus
	Publishing *DirectoryPublishingStatus
}

// interpretOutcome decodes the post-submission state of a request into an
// Outcome kind. A completed request additionally has its embedded result code
// checked: a queue-level "complete" can still carry service failures.
func interpretOutcome(req *core.RevocationRequest) *Outcome {
	outcome := &Outcome{
		Status:    req.Status,
		RequestID: req.ID,
		Processed: req.TargetSerials(),
	}

	switch req.Status {
	case core.RequestComplete:
		if req.Result == core.ResultError {
			outcome.Kind = OutcomeServiceError
			outcome.ServiceErrors = req.ServiceErrors
		} else {
			outcome.Kind = OutcomeSuccess
		}
	case core.RequestServicePending:
		if req.Propagated {
			// Forwarded to the upstream CA; from this authority's point of
			// view the operation has succeeded.
			outcome.Kind = OutcomeSuccess
		} else {
			outcome.Kind = OutcomePending
		}
	case core.RequestPending:
		outcome.Kind = OutcomePending
	case core.RequestRejected:
		outcome.Kind = OutcomeRejected
	default:
		outcome.Kind = OutcomeOther
	}

	return outcome
}

// serviceErrorEntries builds the best-effort per-certificate audit detail for
// a request that completed with service errors: every originally-targeted
// certificate gets an entry, with failure detail looked up by serial from what
// servicing recorded. Errors with no per-certificate attribution stay in the
// request's batch-level ServiceErrors list and never land on a certificate
// that was serviced cleanly.
func serviceErrorEntries(req *core.RevocationRequest) []certAuditEntry {
	serials := req.TargetSerials()
	entries := make([]certAuditEntry, 0, len(serials))
	for _, serial := range serials {
		entries = append(entries, certAuditEntry{
			Serial: auditSerial(serial),
			Error:  req.CertServiceError(serial),
		})
	}
	return entries
}
