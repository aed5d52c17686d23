package revocation

import (
	"testing"

	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/test"
)

func TestStringToReason(t *testing.T) {
	reason, err := StringToReason("keyCompromise")
	test.AssertNotError(t, err, "resolving keyCompromise")
	test.AssertEquals(t, reason, Reason(ocsp.KeyCompromise))

	_, err = StringToReason("certificateProbablyFine")
	test.AssertError(t, err, "expected unknown reason to fail")
}

func TestRoutesToUnrevocation(t *testing.T) {
	test.Assert(t, RoutesToUnrevocation(ocsp.RemoveFromCRL), "removeFromCRL must route to unrevocation")
	for _, r := range []Reason{ocsp.Unspecified, ocsp.KeyCompromise, ocsp.CertificateHold} {
		test.Assert(t, !RoutesToUnrevocation(r), "only removeFromCRL routes to unrevocation")
	}
}

func TestEndEntityAllowedReasonsExcludesHold(t *testing.T) {
	_, ok := EndEntityAllowedReasons[ocsp.CertificateHold]
	test.Assert(t, !ok, "end entities must not place certificates on hold")
	_, ok = EndEntityAllowedReasons[ocsp.RemoveFromCRL]
	test.Assert(t, !ok, "end entities must not take certificates off hold")
}

func TestAllowedReasonsMessage(t *testing.T) {
	msg := AllowedReasonsMessage(EndEntityAllowedReasons)
	test.AssertEquals(t, msg, "unspecified (0), keyCompromise (1), affiliationChanged (3), superseded (4), cessationOfOperation (5)")
}
