package revocation

import (
	"testing"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/test"
)

func TestBuildEntryExtensionsWithoutInvalidityDate(t *testing.T) {
	exts, err := BuildEntryExtensions(ocsp.KeyCompromise, nil)
	test.AssertNotError(t, err, "building extensions")

	_, present := exts.InvalidityDate()
	test.Assert(t, !present, "invalidity date must be absent when no date was supplied")
	test.AssertEquals(t, len(exts.List()), 1)

	reason, err := DecodeReasonCode(exts.ReasonCode())
	test.AssertNotError(t, err, "decoding reason code")
	test.AssertEquals(t, reason, Reason(ocsp.KeyCompromise))
}

func TestBuildEntryExtensionsWithInvalidityDate(t *testing.T) {
	date := time.Date(2023, 5, 17, 12, 30, 0, 0, time.UTC)
	exts, err := BuildEntryExtensions(ocsp.CertificateHold, &date)
	test.AssertNotError(t, err, "building extensions")

	inv, present := exts.InvalidityDate()
	test.Assert(t, present, "invalidity date must be present when a date was supplied")
	test.Assert(t, len(inv.Value) > 0, "invalidity date extension must carry DER")
	test.AssertEquals(t, len(exts.List()), 2)
}

func TestDecodeReasonCodeRejectsWrongOID(t *testing.T) {
	date := time.Now()
	exts, err := BuildEntryExtensions(ocsp.Unspecified, &date)
	test.AssertNotError(t, err, "building extensions")

	inv, _ := exts.InvalidityDate()
	_, err = DecodeReasonCode(inv)
	test.AssertError(t, err, "decoding a non-reason-code extension should fail")
}
