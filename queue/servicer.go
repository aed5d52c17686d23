package queue

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cms-pki/revproc/core"
	"github.com/cms-pki/revproc/revocation"
)

// CertStatusWriter is the write half of the certificate store the default
// servicer flips status in. The storage layer implements it alongside the
// read-side repository.
type CertStatusWriter interface {
	MarkRevoked(ctx context.Context, serial *big.Int, reason revocation.Reason) error
	MarkUnrevoked(ctx context.Context, serial *big.Int) error
}

// RepositoryServicer services requests against a certificate store: it flips
// each target's status and records per-issuing-point CRL results and
// per-certificate directory results on the request. It is the servicer a
// single-process deployment wires into the queue.
type RepositoryServicer struct {
	Writer CertStatusWriter
	// Points are the authority's CRL issuing points. Updates are recorded
	// for every point, master included; the aggregation side decides what to
	// surface.
	Points []core.IssuingPointRef
	// LDAP enables recording of per-certificate directory publish results.
	LDAP bool
}

// Service implements Servicer.
func (s *RepositoryServicer) Service(ctx context.Context, req *core.RevocationRequest) error {
	var failed, total int
	switch req.Type {
	case core.TypeRevocation:
		total = len(req.RevokedCerts)
		for _, rc := range req.RevokedCerts {
			if err := s.Writer.MarkRevoked(ctx, rc.Target.Serial, req.Reason); err != nil {
				req.ServiceErrors = append(req.ServiceErrors, err.Error())
				req.SetCertServiceError(rc.Target.Serial, err.Error())
				failed++
				continue
			}
			if s.LDAP {
				req.SetLDAPPublishResult(rc.Target.Serial, true)
			}
		}
	case core.TypeUnrevocation:
		total = len(req.Serials)
		for _, serial := range req.Serials {
			if err := s.Writer.MarkUnrevoked(ctx, serial); err != nil {
				req.ServiceErrors = append(req.ServiceErrors, err.Error())
				req.SetCertServiceError(serial, err.Error())
				failed++
				continue
			}
			if s.LDAP {
				req.SetLDAPPublishResult(serial, true)
			}
		}
	default:
		return fmt.Errorf("unknown request type %q", req.Type)
	}

	// The in-memory store regenerates CRLs synchronously, so every issuing
	// point records a successful update and publish.
	for _, point := range s.Points {
		req.SetCRLUpdateResult(point.ID, true, "")
		req.SetCRLPublishResult(point.ID, true, "")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d certificates could not be updated", failed, total)
	}
	return nil
}
