package governance

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGovernanceProperties(t *testing.T) {
	rules := defaultRules(t)
	blocking := configWithAction(t, ActionBlock)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("strings without digits or @ pass unchanged", prop.ForAll(
		func(s string) bool {
			return RedactString(s, rules) == s && !ContainsPII(s, rules)
		},
		gen.AlphaString(),
	))

	properties.Property("redaction keeps the key set", prop.ForAll(
		func(m map[string]string) bool {
			in := make(Fields, len(m))
			for k, v := range m {
				in[k] = String(v)
			}
			out := RedactPayload(in, rules)
			if len(out) != len(in) {
				return false
			}
			for k := range in {
				if _, ok := out[k]; !ok {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.AnyString()),
	))

	properties.Property("blocked payloads never contain the input", prop.ForAll(
		func(local string, value string) bool {
			secret := local + "@example.com " + value
			got, err := Apply(Fields{"Email": String(secret), "N": Number("1")}, blocking)
			if err != nil || got.Outcome != OutcomeBlocked {
				return false
			}
			f := got.Payload.(Fields)
			s, ok := f["Email"].(String)
			return ok && s == BlockedSentinel && !strings.Contains(string(s), "example.com") && f["N"] == Number("1")
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
