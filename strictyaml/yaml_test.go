package strictyaml

import (
	"testing"

	"github.com/cms-pki/revproc/test"
)

func TestUnmarshal(t *testing.T) {
	var out struct {
		Name  string
		Count int
	}
	err := Unmarshal([]byte("name: ip1\ncount: 3\n"), &out)
	test.AssertNotError(t, err, "unmarshalling known fields")
	test.AssertEquals(t, out.Name, "ip1")
	test.AssertEquals(t, out.Count, 3)
}

func TestUnmarshalUnknownField(t *testing.T) {
	var out struct {
		Name string
	}
	err := Unmarshal([]byte("name: ip1\nextra: true\n"), &out)
	test.AssertError(t, err, "unknown fields must be refused")
}

func TestUnmarshalEmpty(t *testing.T) {
	var out struct {
		Name string
	}
	err := Unmarshal([]byte(""), &out)
	test.AssertError(t, err, "empty document returns io.EOF")
}
