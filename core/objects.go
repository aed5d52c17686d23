// Package core holds the domain objects and collaborator interfaces shared by
// the revocation processing core.
package core

import (
	"math/big"

	"github.com/cms-pki/revproc/revocation"
)

// CertStatus is the lifecycle status of a certificate record in the
// repository.
type CertStatus string

const (
	StatusValid          = CertStatus("VALID")
	StatusRevoked        = CertStatus("REVOKED")
	StatusRevokedExpired = CertStatus("REVOKED_EXPIRED")
	StatusExpired        = CertStatus("EXPIRED")
)

// Revoked reports whether the status represents a certificate that is
// currently on a CRL.
func (s CertStatus) Revoked() bool {
	return s == StatusRevoked || s == StatusRevokedExpired
}

// CertificateTarget is one certificate being considered for revocation or
// unrevocation. Targets are read from the certificate repository at
// request-build time and never mutated by the processing core; status flips
// happen as a side effect of the queue servicing the request.
type CertificateTarget struct {
	Serial  *big.Int
	Subject string
	Status  CertStatus
	// RevokedReason is meaningful only when Status reports revoked.
	RevokedReason revocation.Reason
	// SystemCert marks CA signing and other infrastructure certificates
	// which are excluded from revocation outside an explicit CA-cert
	// operation.
	SystemCert bool
	// EnrollmentRequestID is the id of the enrollment request that produced
	// this certificate. RA scopes restrict selection to certificates whose
	// EnrollmentRequestID matches the caller-supplied request id.
	EnrollmentRequestID string
}

// RequestType distinguishes the two units of work the queue accepts.
type RequestType string

const (
	TypeRevocation   = RequestType("revocation")
	TypeUnrevocation = RequestType("unrevocation")
)

// RequestorType identifies who is asking for the status change.
type RequestorType string

const (
	RequestorAgent = RequestorType("agent")
	RequestorEE    = RequestorType("ee")
)

// RequestStatus is the queue-owned request state machine:
//
//	initial -> {pending, complete, rejected, canceled, svcPending}
//
// The processing core only ever reads these states; transitions belong to the
// queue.
type RequestStatus string

const (
	RequestInitial        = RequestStatus("initial")
	RequestPending        = RequestStatus("pending")
	RequestComplete       = RequestStatus("complete")
	RequestRejected       = RequestStatus("rejected")
	RequestCanceled       = RequestStatus("canceled")
	RequestServicePending = RequestStatus("svcPending")
)

// Final reports whether the status is one of the three states that close out
// a request and trigger a "request processed" audit event. pending and
// svcPending are terminal from the submitter's point of view but not final.
func (s RequestStatus) Final() bool {
	return s == RequestComplete || s == RequestRejected || s == RequestCanceled
}

// ResultCode is the embedded numeric result the queue records on a completed
// request, independent of its status.
type ResultCode int

const (
	// ResultUnset is the zero value, present before servicing.
	ResultUnset   = ResultCode(0)
	ResultSuccess = ResultCode(1)
	ResultError   = ResultCode(2)
)

// RevokedCert pairs a target certificate with the CRL entry extension bundle
// that will accompany it onto the CRL.
type RevokedCert struct {
	Target     *CertificateTarget
	Extensions *revocation.EntryExtensions
}

// RevocationRequest represents one unit of work submitted to the request
// queue. Created by the builder, mutated only by the queue's processing
// pipeline, and read back by the outcome interpreter.
type RevocationRequest struct {
	// ID is assigned by the queue at creation time.
	ID        string
	Type      RequestType
	Requestor RequestorType
	Reason    revocation.Reason
	Comments  string

	// RevokedCerts carries the full extension-bearing revoked-certificate
	// list. Populated for revocation requests only.
	RevokedCerts []RevokedCert
	// Serials carries the target serial numbers. Populated for unrevocation
	// requests only.
	Serials []*big.Int

	// Propagated marks a request built under an RA scope, which the local
	// queue forwards to the upstream CA rather than servicing itself. Such
	// requests resolve as svcPending and are treated as terminal success.
	Propagated bool

	Status RequestStatus
	Result ResultCode
	// ServiceErrors lists per-service failure detail when Result is
	// ResultError.
	ServiceErrors []string

	// Ext carries string-keyed results the queue's servicing attaches under
	// well-known keys (see ext.go). Never nil after NewRequest.
	Ext map[string]string
}

// TargetSerials returns the serial numbers this request acts on, in the order
// they were added, regardless of request type.
func (r *RevocationRequest) TargetSerials() []*big.Int {
	if r.Type == TypeUnrevocation {
		return r.Serials
	}
	serials := make([]*big.Int, 0, len(r.RevokedCerts))
	for _, rc := range r.RevokedCerts {
		serials = append(serials, rc.Target.Serial)
	}
	return serials
}

// IssuingPointRef identifies one CRL issuing point of the authority. The
// master CRL is carried in listings but excluded from per-point status
// aggregation by convention.
type IssuingPointRef struct {
	ID     string
	Master bool
}
