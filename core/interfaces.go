package core

import (
	"context"
	"math/big"
	"time"
)

// CertificateRepository is the read interface to the authority's certificate
// store. Implementations own their own concurrency discipline; the processing
// core performs no locking around repository access.
type CertificateRepository interface {
	// FindBySerial resolves one certificate record. Returns a NotFound core
	// error if no record matches.
	FindBySerial(ctx context.Context, serial *big.Int) (*CertificateTarget, error)
	// SearchByFilter resolves every record matching the filter expression,
	// up to maxResults, giving up after timeLimit.
	SearchByFilter(ctx context.Context, filter string, maxResults int, timeLimit time.Duration) ([]*CertificateTarget, error)
}

// RequestQueue is the asynchronous request pipeline. Submit blocks until the
// queue has either serviced the request or parked it for agent approval; from
// the caller's point of view it is a synchronous call with no timeout of its
// own, so implementations must honor ctx cancellation.
type RequestQueue interface {
	NewRequest(ctx context.Context, typ RequestType) (*RevocationRequest, error)
	Submit(ctx context.Context, req *RevocationRequest) (*RevocationRequest, error)
	FindRequest(ctx context.Context, id string) (*RevocationRequest, error)
}

// CAFacade is the slice of a certificate authority the processing core needs:
// the set of CRL issuing points to aggregate status over.
type CAFacade interface {
	// IssuingPoints lists every issuing point, master CRL included. Master
	// exclusion is the aggregator's job, not the listing's.
	IssuingPoints() []IssuingPointRef
}

// RAFacade is the slice of a registration authority the processing core
// needs: the ability to check which enrollment request a certificate
// originated from.
type RAFacade interface {
	OriginatedFrom(target *CertificateTarget, requestID string) bool
}

// Publisher reports whether LDAP directory publishing is configured on the
// authority.
type Publisher interface {
	LDAPEnabled() bool
}

// AuthorityKind tags an AuthorityScope.
type AuthorityKind int

const (
	KindCA AuthorityKind = iota
	KindRA
)

// AuthorityScope is the tagged CA/RA variant resolved once at the boundary.
// Exactly one of CA or RA is set, matching Kind; the core branches on the tag
// instead of re-checking authority types throughout.
type AuthorityScope struct {
	Kind AuthorityKind
	CA   CAFacade
	RA   RAFacade
}

// CAScope wraps a CA facade in an AuthorityScope.
func CAScope(ca CAFacade) AuthorityScope {
	return AuthorityScope{Kind: KindCA, CA: ca}
}

// RAScope wraps an RA facade in an AuthorityScope.
func RAScope(ra RAFacade) AuthorityScope {
	return AuthorityScope{Kind: KindRA, RA: ra}
}
