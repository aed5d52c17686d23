package sa

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/test"
)

func newTestDB(t *testing.T) (*Database, clock.FakeClock) {
	t.Helper()
	clk := clock.NewFake()
	clk.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db, err := NewSQLite(":memory:", blog.NewMock(), clk)
	test.AssertNotError(t, err, "opening in-memory database")
	return db, clk
}

func addCert(t *testing.T, db *Database, target *core.CertificateTarget) {
	t.Helper()
	err := db.AddCertificate(context.Background(), target,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	test.AssertNotError(t, err, "inserting cert record")
}

func TestFindBySerial(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{
		Serial:              big.NewInt(0xabc),
		Subject:             "CN=ee cert",
		EnrollmentRequestID: "enroll-7",
	})

	target, err := db.FindBySerial(context.Background(), big.NewInt(0xabc))
	test.AssertNotError(t, err, "finding by serial")
	test.AssertEquals(t, target.Serial.Int64(), int64(0xabc))
	test.AssertEquals(t, target.Subject, "CN=ee cert")
	test.AssertEquals(t, target.Status, core.StatusValid)
	test.AssertEquals(t, target.EnrollmentRequestID, "enroll-7")

	_, err = db.FindBySerial(context.Background(), big.NewInt(0xdef))
	test.AssertErrorIs(t, err, rerrors.NotFound)
}

func TestSearchByFilter(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(1), Subject: "CN=alpha"})
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(2), Subject: "CN=beta"})
	addCert(t, db, &core.CertificateTarget{
		Serial: big.NewInt(3), Subject: "CN=gamma", Status: core.StatusRevoked,
	})

	targets, err := db.SearchByFilter(context.Background(), "status=VALID", 0, time.Minute)
	test.AssertNotError(t, err, "searching by status")
	test.AssertEquals(t, len(targets), 2)

	targets, err = db.SearchByFilter(context.Background(), "status=VALID,subject=beta", 0, time.Minute)
	test.AssertNotError(t, err, "searching by status and subject")
	test.AssertEquals(t, len(targets), 1)
	test.AssertEquals(t, targets[0].Serial.Int64(), int64(2))

	// maxResults caps the result set.
	targets, err = db.SearchByFilter(context.Background(), "status=VALID", 1, time.Minute)
	test.AssertNotError(t, err, "searching with a result cap")
	test.AssertEquals(t, len(targets), 1)

	_, err = db.SearchByFilter(context.Background(), "owner=alice", 0, time.Minute)
	test.AssertErrorIs(t, err, rerrors.Malformed)
	_, err = db.SearchByFilter(context.Background(), "no equals sign", 0, time.Minute)
	test.AssertErrorIs(t, err, rerrors.Malformed)
}

func TestMarkRevoked(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(10), Subject: "CN=a"})

	err := db.MarkRevoked(context.Background(), big.NewInt(10), ocsp.KeyCompromise)
	test.AssertNotError(t, err, "revoking")

	target, err := db.FindBySerial(context.Background(), big.NewInt(10))
	test.AssertNotError(t, err, "reading back")
	test.AssertEquals(t, target.Status, core.StatusRevoked)
	test.AssertEquals(t, int64(target.RevokedReason), int64(ocsp.KeyCompromise))

	// A second revocation is refused.
	err = db.MarkRevoked(context.Background(), big.NewInt(10), ocsp.Superseded)
	test.AssertErrorIs(t, err, rerrors.AlreadyRevoked)

	err = db.MarkRevoked(context.Background(), big.NewInt(11), ocsp.KeyCompromise)
	test.AssertErrorIs(t, err, rerrors.NotFound)
}

func TestMarkRevokedExpired(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{
		Serial: big.NewInt(20), Subject: "CN=expired", Status: core.StatusExpired,
	})

	err := db.MarkRevoked(context.Background(), big.NewInt(20), ocsp.CessationOfOperation)
	test.AssertNotError(t, err, "revoking expired cert")

	target, err := db.FindBySerial(context.Background(), big.NewInt(20))
	test.AssertNotError(t, err, "reading back")
	test.AssertEquals(t, target.Status, core.StatusRevokedExpired)
}

func TestMarkUnrevoked(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(30), Subject: "CN=held"})

	err := db.MarkRevoked(context.Background(), big.NewInt(30), ocsp.CertificateHold)
	test.AssertNotError(t, err, "placing on hold")

	err = db.MarkUnrevoked(context.Background(), big.NewInt(30))
	test.AssertNotError(t, err, "taking off hold")

	target, err := db.FindBySerial(context.Background(), big.NewInt(30))
	test.AssertNotError(t, err, "reading back")
	test.AssertEquals(t, target.Status, core.StatusValid)
	test.AssertEquals(t, int64(target.RevokedReason), int64(0))
}

func TestMarkUnrevokedRequiresHold(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(40), Subject: "CN=a"})
	addCert(t, db, &core.CertificateTarget{Serial: big.NewInt(41), Subject: "CN=b"})

	// Never revoked.
	err := db.MarkUnrevoked(context.Background(), big.NewInt(40))
	test.AssertErrorIs(t, err, rerrors.NotOnHold)

	// Revoked for a permanent reason.
	err = db.MarkRevoked(context.Background(), big.NewInt(41), ocsp.KeyCompromise)
	test.AssertNotError(t, err, "revoking")
	err = db.MarkUnrevoked(context.Background(), big.NewInt(41))
	test.AssertErrorIs(t, err, rerrors.NotOnHold)
}

func TestMarkUnrevokedExpiredHold(t *testing.T) {
	db, _ := newTestDB(t)
	addCert(t, db, &core.CertificateTarget{
		Serial: big.NewInt(50), Subject: "CN=expired-held", Status: core.StatusExpired,
	})

	err := db.MarkRevoked(context.Background(), big.NewInt(50), ocsp.CertificateHold)
	test.AssertNotError(t, err, "placing expired cert on hold")
	err = db.MarkUnrevoked(context.Background(), big.NewInt(50))
	test.AssertNotError(t, err, "taking expired cert off hold")

	target, err := db.FindBySerial(context.Background(), big.NewInt(50))
	test.AssertNotError(t, err, "reading back")
	test.AssertEquals(t, target.Status, core.StatusExpired)
}
