package core

import (
	"errors"
	"math/big"
	"testing"

	rerrors "github.com/cms-pki/revproc/errors"
	"github.com/cms-pki/revproc/test"
)

func TestAuditSerialNormalizations(t *testing.T) {
	serial := big.NewInt(0x64)
	test.AssertEquals(t, AuditSerialHex(serial), "0x64")
	test.AssertEquals(t, AuditSerialPlainHex(serial), "64")

	wide := new(big.Int).SetBytes([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	test.AssertEquals(t, AuditSerialHex(wide), "0xdeadbeef01")
	test.AssertEquals(t, AuditSerialPlainHex(wide), "deadbeef01")

	test.AssertEquals(t, AuditSerialHex(nil), EmptySerial)
	test.AssertEquals(t, AuditSerialPlainHex(nil), EmptySerial)
}

func TestParseSerial(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  int64
	}{
		{"0x64", 100},
		{"0X1C8", 456},
		{"100", 100},
		{" 42 ", 42},
	} {
		got, err := ParseSerial(tc.input)
		test.AssertNotError(t, err, "parsing "+tc.input)
		test.AssertEquals(t, got.Int64(), tc.want)
	}

	for _, input := range []string{"", "0x", "zz", "-5", "0x-4"} {
		_, err := ParseSerial(input)
		test.AssertError(t, err, "expected parse failure for "+input)
		test.Assert(t, errors.Is(err, rerrors.Malformed), "parse failures must be Malformed errors")
	}
}
