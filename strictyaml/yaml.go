// Package strictyaml provides a strict YAML unmarshaller based on
// `go-yaml/yaml`.
package strictyaml

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// Unmarshal decodes the YAML document in b into out. Any keys in the incoming
// document which do not correspond to fields of the target struct result in
// an error, so config typos fail loudly instead of being silently dropped.
//
// TODO(https://github.com/go-yaml/yaml/issues/639): Replace this function with
// yaml.Unmarshal once a more ergonomic way to set unmarshal options is added
// upstream.
func Unmarshal(b []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)

	err := decoder.Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return err
}
