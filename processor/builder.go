package processor

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	"github.com/cms-pki/revproc/revocation"
)

// Criteria identifies the set of certificates a revocation operation should
// act on. Exactly one of Serials, Filter or CertB64 must be set.
type Criteria struct {
	// Serials is an explicit list of serial numbers.
	Serials []*big.Int
	// Filter is a repository filter expression selecting a set of
	// certificate records.
	Filter string
	// MaxResults and TimeLimit bound a Filter search. Zero values leave the
	// bounds to the repository.
	MaxResults int
	TimeLimit  time.Duration
	// CertB64 is a single base64-encoded DER certificate whose repository
	// record should be targeted.
	CertB64 string
	// EnrollmentRequestID restricts RA-scope selection to certificates that
	// originated from this enrollment request.
	EnrollmentRequestID string
}

// SelectTargets resolves the criteria to zero or more certificate targets via
// the repository, in repository order for filter searches and caller order
// for explicit serial lists. Under an RA scope the result is additionally
// restricted to certificates originating from the criteria's enrollment
// request.
func (p *Processor) SelectTargets(ctx context.Context, criteria Criteria) ([]*core.CertificateTarget, error) {
	set := 0
	for _, present := range []bool{len(criteria.Serials) > 0, criteria.Filter != "", criteria.CertB64 != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, rerrors.MalformedError("exactly one of serials, filter or certificate must be given")
	}

	var targets []*core.CertificateTarget
	switch {
	case len(criteria.Serials) > 0:
		for _, serial := range criteria.Serials {
			target, err := p.repo.FindBySerial(ctx, serial)
			if err != nil {
				return nil, fmt.Errorf("resolving serial %s: %w", core.AuditSerialHex(serial), err)
			}
			targets = append(targets, target)
		}
	case criteria.Filter != "":
		found, err := p.repo.SearchByFilter(ctx, criteria.Filter, criteria.MaxResults, criteria.TimeLimit)
		if err != nil {
			return nil, fmt.Errorf("searching by filter %q: %w", criteria.Filter, err)
		}
		targets = found
	default:
		der, err := base64.StdEncoding.DecodeString(criteria.CertB64)
		if err != nil {
			return nil, rerrors.SubmissionError("decoding certificate: %s", err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, rerrors.SubmissionError("parsing certificate: %s", err)
		}
		target, err := p.repo.FindBySerial(ctx, cert.SerialNumber)
		if err != nil {
			return nil, fmt.Errorf("resolving certificate serial %s: %w", core.AuditSerialHex(cert.SerialNumber), err)
		}
		targets = append(targets, target)
	}

	if p.scope.Kind == core.KindRA {
		restricted := make([]*core.CertificateTarget, 0, len(targets))
		for _, target := range targets {
			if p.scope.RA.OriginatedFrom(target, criteria.EnrollmentRequestID) {
				restricted = append(restricted, target)
			}
		}
		targets = restricted
	}

	return targets, nil
}

// ValidateTarget checks a single certificate's eligibility for the given
// reason. caCertOperation marks the explicit CA-certificate entry point,
// which is the only path allowed to act on system certificates.
func ValidateTarget(target *core.CertificateTarget, reason revocation.Reason, caCertOperation bool) error {
	if revocation.RoutesToUnrevocation(reason) {
		// Off-hold: the certificate must currently be revoked with reason
		// certificateHold.
		if !target.Status.Revoked() {
			return rerrors.NotOnHoldError("certificate %s is not revoked", core.AuditSerialHex(target.Serial))
		}
		if target.RevokedReason != ocsp.CertificateHold {
			return rerrors.NotOnHoldError("certificate %s is revoked but not on hold", core.AuditSerialHex(target.Serial))
		}
		return nil
	}

	if target.SystemCert && !caCertOperation {
		return rerrors.SystemCertError("certificate %s is a system certificate", core.AuditSerialHex(target.Serial))
	}
	if target.Status.Revoked() {
		return rerrors.AlreadyRevokedError("certificate %s is already revoked", core.AuditSerialHex(target.Serial))
	}
	return nil
}

// SkipNote records one certificate excluded from a batch and why.
type SkipNote struct {
	Serial  *big.Int
	Subject string
	Detail  string
	// AlreadyRevoked distinguishes the one skip cause that still lets an
	// otherwise-empty batch resolve as a trivial success.
	AlreadyRevoked bool
}

// buildRevocationBatch walks the targets in caller order, validating each,
// and splits them into the extension-bearing revoked-certificate list and
// skip notes. An empty eligible list is an error unless every skip was
// "already revoked", in which case the batch succeeds trivially.
func buildRevocationBatch(targets []*core.CertificateTarget, reason revocation.Reason, caCertOperation bool, exts *revocation.EntryExtensions) ([]core.RevokedCert, []SkipNote, error) {
	var eligible []core.RevokedCert
	var skipped []SkipNote
	for _, target := range targets {
		err := ValidateTarget(target, reason, caCertOperation)
		if err != nil {
			skipped = append(skipped, SkipNote{
				Serial:         target.Serial,
				Subject:        target.Subject,
				Detail:         err.Error(),
				AlreadyRevoked: errors.Is(err, rerrors.AlreadyRevoked),
			})
			continue
		}
		eligible = append(eligible, core.RevokedCert{Target: target, Extensions: exts})
	}

	if len(eligible) == 0 {
		for _, note := range skipped {
			if !note.AlreadyRevoked {
				return nil, skipped, rerrors.EmptyBatchError("no certificates eligible for revocation: %s", note.Detail)
			}
		}
		if len(skipped) == 0 {
			return nil, nil, rerrors.EmptyBatchError("no certificates matched the request")
		}
		// Every target was already revoked: a successful no-op.
	}

	return eligible, skipped, nil
}

// validateUnrevocationBatch checks every target for the off-hold path. Unlike
// revocation, any ineligible target fails the whole batch: taking a
// certificate off hold that is not on hold has no partial-success reading.
func validateUnrevocationBatch(targets []*core.CertificateTarget) ([]*big.Int, error) {
	if len(targets) == 0 {
		return nil, rerrors.EmptyBatchError("no certificates matched the request")
	}
	serials := make([]*big.Int, 0, len(targets))
	for _, target := range targets {
		err := ValidateTarget(target, ocsp.RemoveFromCRL, false)
		if err != nil {
			return nil, err
		}
		serials = append(serials, target.Serial)
	}
	return serials, nil
}
