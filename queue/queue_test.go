package queue

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/revocation"
	"github.com/cms-pki/revproc/test"
)

func newTestQueue(servicer Servicer, requireApproval bool) *Memory {
	return NewMemory(clock.NewFake(), blog.NewMock(), servicer, requireApproval)
}

func noopServicer() Servicer {
	return ServiceFunc(func(_ context.Context, _ *core.RevocationRequest) error {
		return nil
	})
}

func TestSubmitServicesInline(t *testing.T) {
	var serviced []string
	q := newTestQueue(ServiceFunc(func(_ context.Context, req *core.RevocationRequest) error {
		serviced = append(serviced, req.ID)
		req.SetCRLUpdateResult("ip1", true, "")
		return nil
	}), false)

	req, err := q.NewRequest(context.Background(), core.TypeRevocation)
	test.AssertNotError(t, err, "creating request")
	test.AssertEquals(t, req.Status, core.RequestInitial)

	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting request")
	test.AssertEquals(t, got.Status, core.RequestComplete)
	test.AssertEquals(t, got.Result, core.ResultSuccess)
	test.AssertEquals(t, len(serviced), 1)

	ok, _, recorded := got.CRLUpdateResult("ip1")
	test.Assert(t, recorded && ok, "servicer-recorded CRL result should survive")
}

func TestSubmitServiceErrorCompletesWithError(t *testing.T) {
	q := newTestQueue(ServiceFunc(func(_ context.Context, _ *core.RevocationRequest) error {
		return errors.New("token unavailable")
	}), false)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "service failures must not fail the submission")
	test.AssertEquals(t, got.Status, core.RequestComplete)
	test.AssertEquals(t, got.Result, core.ResultError)
	test.AssertDeepEquals(t, got.ServiceErrors, []string{"token unavailable"})
}

func TestSubmitRejectsForeignAndResubmitted(t *testing.T) {
	q := newTestQueue(noopServicer(), false)

	foreign := &core.RevocationRequest{ID: "not-ours"}
	_, err := q.Submit(context.Background(), foreign)
	test.AssertErrorIs(t, err, rerrors.Submission)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	_, err = q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "first submission")
	_, err = q.Submit(context.Background(), req)
	test.AssertErrorIs(t, err, rerrors.Submission)
}

func TestSubmitCanceledContext(t *testing.T) {
	q := newTestQueue(ServiceFunc(func(_ context.Context, _ *core.RevocationRequest) error {
		t.Fatal("servicer must not run after cancellation")
		return nil
	}), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	got, err := q.Submit(ctx, req)
	test.AssertNotError(t, err, "submitting with canceled context")
	test.AssertEquals(t, got.Status, core.RequestComplete)
	test.AssertEquals(t, got.Result, core.ResultError)
	test.AssertDeepEquals(t, got.ServiceErrors, []string{"context canceled"})
}

func TestSubmitPropagatedParksServicePending(t *testing.T) {
	q := newTestQueue(ServiceFunc(func(_ context.Context, _ *core.RevocationRequest) error {
		t.Fatal("propagated requests are not serviced locally")
		return nil
	}), false)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	req.Propagated = true
	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting propagated request")
	test.AssertEquals(t, got.Status, core.RequestServicePending)
	test.Assert(t, !got.Status.Final(), "svcPending is not final")
}

func TestApprovalWorkflow(t *testing.T) {
	q := newTestQueue(noopServicer(), true)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting under approval profile")
	test.AssertEquals(t, got.Status, core.RequestPending)

	found, err := q.FindRequest(context.Background(), req.ID)
	test.AssertNotError(t, err, "finding parked request")
	test.AssertEquals(t, found.Status, core.RequestPending)

	approved, err := q.Approve(context.Background(), req.ID)
	test.AssertNotError(t, err, "approving request")
	test.AssertEquals(t, approved.Status, core.RequestComplete)
	test.AssertEquals(t, approved.Result, core.ResultSuccess)

	// A resolved request cannot be resolved again.
	_, err = q.Reject(context.Background(), req.ID)
	test.AssertErrorIs(t, err, rerrors.Submission)
}

func TestRejectAndCancel(t *testing.T) {
	q := newTestQueue(noopServicer(), true)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	_, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting")
	rejected, err := q.Reject(context.Background(), req.ID)
	test.AssertNotError(t, err, "rejecting")
	test.AssertEquals(t, rejected.Status, core.RequestRejected)
	test.Assert(t, rejected.Status.Final(), "rejected is final")

	req2, _ := q.NewRequest(context.Background(), core.TypeUnrevocation)
	_, err = q.Submit(context.Background(), req2)
	test.AssertNotError(t, err, "submitting")
	canceled, err := q.Cancel(context.Background(), req2.ID)
	test.AssertNotError(t, err, "canceling")
	test.AssertEquals(t, canceled.Status, core.RequestCanceled)

	_, err = q.Approve(context.Background(), "999")
	test.AssertErrorIs(t, err, rerrors.NotFound)
}

func TestResolutionReachesAuditTrail(t *testing.T) {
	log := blog.NewMock()
	q := NewMemory(clock.NewFake(), log, noopServicer(), true)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	_, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting")
	_, err = q.Approve(context.Background(), req.ID)
	test.AssertNotError(t, err, "approving")
	matches := log.GetAllMatching(`\[AUDIT\] request 1 approved: status=complete result=1`)
	test.AssertEquals(t, len(matches), 1)

	req2, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	_, err = q.Submit(context.Background(), req2)
	test.AssertNotError(t, err, "submitting")
	_, err = q.Reject(context.Background(), req2.ID)
	test.AssertNotError(t, err, "rejecting")
	matches = log.GetAllMatching(`\[AUDIT\] request 2 rejected: status=rejected`)
	test.AssertEquals(t, len(matches), 1)

	req3, _ := q.NewRequest(context.Background(), core.TypeUnrevocation)
	_, err = q.Submit(context.Background(), req3)
	test.AssertNotError(t, err, "submitting")
	_, err = q.Cancel(context.Background(), req3.ID)
	test.AssertNotError(t, err, "canceling")
	matches = log.GetAllMatching(`\[AUDIT\] request 3 canceled: status=canceled`)
	test.AssertEquals(t, len(matches), 1)
}

type fakeWriter struct {
	revoked   map[string]revocation.Reason
	unrevoked map[string]bool
	failOn    string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		revoked:   make(map[string]revocation.Reason),
		unrevoked: make(map[string]bool),
	}
}

func (w *fakeWriter) MarkRevoked(_ context.Context, serial *big.Int, reason revocation.Reason) error {
	if serial.Text(16) == w.failOn {
		return fmt.Errorf("serial %s: tampered record", serial.Text(16))
	}
	w.revoked[serial.Text(16)] = reason
	return nil
}

func (w *fakeWriter) MarkUnrevoked(_ context.Context, serial *big.Int) error {
	if serial.Text(16) == w.failOn {
		return fmt.Errorf("serial %s: tampered record", serial.Text(16))
	}
	w.unrevoked[serial.Text(16)] = true
	return nil
}

func revokedCert(serial int64) core.RevokedCert {
	return core.RevokedCert{
		Target: &core.CertificateTarget{Serial: big.NewInt(serial), Status: core.StatusValid},
	}
}

func TestRepositoryServicerRevocation(t *testing.T) {
	writer := newFakeWriter()
	servicer := &RepositoryServicer{
		Writer: writer,
		Points: []core.IssuingPointRef{{ID: "MasterCRL", Master: true}, {ID: "ip1"}},
		LDAP:   true,
	}
	q := newTestQueue(servicer, false)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	req.Reason = ocsp.KeyCompromise
	req.RevokedCerts = []core.RevokedCert{revokedCert(0x10), revokedCert(0x20)}

	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting")
	test.AssertEquals(t, got.Result, core.ResultSuccess)
	test.AssertEquals(t, writer.revoked["10"], revocation.Reason(ocsp.KeyCompromise))
	test.AssertEquals(t, writer.revoked["20"], revocation.Reason(ocsp.KeyCompromise))

	for _, id := range []string{"MasterCRL", "ip1"} {
		ok, _, recorded := got.CRLUpdateResult(id)
		test.Assert(t, recorded && ok, "CRL update should be recorded for "+id)
	}
	published, recorded := got.LDAPPublishResult(big.NewInt(0x10))
	test.Assert(t, recorded && published, "LDAP result should be recorded")
}

func TestRepositoryServicerPartialFailure(t *testing.T) {
	writer := newFakeWriter()
	writer.failOn = "20"
	servicer := &RepositoryServicer{Writer: writer, Points: []core.IssuingPointRef{{ID: "ip1"}}}
	q := newTestQueue(servicer, false)

	req, _ := q.NewRequest(context.Background(), core.TypeRevocation)
	req.Reason = ocsp.Superseded
	req.RevokedCerts = []core.RevokedCert{revokedCert(0x10), revokedCert(0x20), revokedCert(0x30)}

	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting")
	test.AssertEquals(t, got.Result, core.ResultError)
	// The per-cert error comes first, then the rollup from the queue.
	test.AssertEquals(t, len(got.ServiceErrors), 2)
	test.AssertEquals(t, got.ServiceErrors[0], "serial 20: tampered record")
	test.AssertEquals(t, got.ServiceErrors[1], "1 of 3 certificates could not be updated")
	// Failure detail is also recorded per certificate, keyed by serial, so
	// readers never have to correlate the batch-level list positionally.
	test.AssertEquals(t, got.CertServiceError(big.NewInt(0x20)), "serial 20: tampered record")
	test.AssertEquals(t, got.CertServiceError(big.NewInt(0x10)), "")
	test.AssertEquals(t, got.CertServiceError(big.NewInt(0x30)), "")
	// The other two certs were still updated.
	test.AssertEquals(t, len(writer.revoked), 2)
}

func TestRepositoryServicerUnrevocation(t *testing.T) {
	writer := newFakeWriter()
	servicer := &RepositoryServicer{Writer: writer, LDAP: true}
	q := newTestQueue(servicer, false)

	req, _ := q.NewRequest(context.Background(), core.TypeUnrevocation)
	req.Reason = ocsp.RemoveFromCRL
	req.Serials = []*big.Int{big.NewInt(0x40)}

	got, err := q.Submit(context.Background(), req)
	test.AssertNotError(t, err, "submitting")
	test.AssertEquals(t, got.Result, core.ResultSuccess)
	test.Assert(t, writer.unrevoked["40"], "cert should be marked unrevoked")
}
