package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cms-pki/revproc/strictyaml"
	"github.com/cms-pki/revproc/test"
)

func TestDurationJSON(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"90s"`), &d)
	test.AssertNotError(t, err, "unmarshalling duration string")
	test.AssertEquals(t, d.Duration, 90*time.Second)

	err = json.Unmarshal([]byte(`90`), &d)
	test.AssertErrorIs(t, err, ErrDurationMustBeString)

	out, err := json.Marshal(Duration{Duration: 90 * time.Second})
	test.AssertNotError(t, err, "marshalling duration")
	test.AssertEquals(t, string(out), `"1m30s"`)
}

func TestDurationYAML(t *testing.T) {
	var cfg struct {
		Window Duration
	}
	err := strictyaml.Unmarshal([]byte("window: 2h\n"), &cfg)
	test.AssertNotError(t, err, "unmarshalling YAML duration")
	test.AssertEquals(t, cfg.Window.Duration, 2*time.Hour)

	err = strictyaml.Unmarshal([]byte("window: [not, a, duration]\n"), &cfg)
	test.AssertError(t, err, "non-string YAML duration must be refused")
}
