package governance

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func configWithAction(t *testing.T, action Action) *Config {
	t.Helper()
	cfg, err := NewConfig(ConfigSpec{
		Version:       "test",
		Rules:         GetDefaultRules(),
		OnContainsPII: action,
	})
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	return cfg
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		payload Payload
		outcome Outcome
		want    Payload
	}{
		{
			name:    "clean string passes",
			action:  ActionRedact,
			payload: String("Logging at 10:42"),
			outcome: OutcomePassed,
			want:    String("Logging at 10:42"),
		},
		{
			name:    "redact string",
			action:  ActionRedact,
			payload: String("Contact: jane@example.com"),
			outcome: OutcomeRedacted,
			want:    String("Contact: ***@example.com"),
		},
		{
			name:    "allow keeps payload",
			action:  ActionAllow,
			payload: String("Contact: jane@example.com"),
			outcome: OutcomePassed,
			want:    String("Contact: jane@example.com"),
		},
		{
			name:    "block string",
			action:  ActionBlock,
			payload: String("ssn 123-45-6789"),
			outcome: OutcomeBlocked,
			want:    String(BlockedSentinel),
		},
		{
			name:    "block clean string passes",
			action:  ActionBlock,
			payload: String("hello"),
			outcome: OutcomePassed,
			want:    String("hello"),
		},
		{
			name:   "redact fields",
			action: ActionRedact,
			payload: Fields{
				"User":   String("jdoe"),
				"Email":  String("jdoe@example.com"),
				"Amount": Number("1"),
			},
			outcome: OutcomeRedacted,
			want: Fields{
				"User":   String("jdoe"),
				"Email":  String("***@example.com"),
				"Amount": Number("1"),
			},
		},
		{
			name:   "block fields scrubs every string",
			action: ActionBlock,
			payload: Fields{
				"User":    String("jdoe"),
				"Email":   String("jdoe@example.com"),
				"Amount":  Number("1"),
				"Active":  Bool(false),
				"Note":    Null{},
				"Aliases": List{String("j.doe@example.com"), Number("2")},
				"Profile": Fields{"Card": String("4111-1111-1111-1111")},
			},
			outcome: OutcomeBlocked,
			want: Fields{
				"User":    String(BlockedSentinel),
				"Email":   String(BlockedSentinel),
				"Amount":  Number("1"),
				"Active":  Bool(false),
				"Note":    Null{},
				"Aliases": List{String(BlockedSentinel), Number("2")},
				"Profile": Fields{"Card": String(BlockedSentinel)},
			},
		},
		{
			name:    "nested pii alone is not detected",
			action:  ActionBlock,
			payload: Fields{"Profile": Fields{"Email": String("x@example.com")}},
			outcome: OutcomePassed,
			want:    Fields{"Profile": Fields{"Email": String("x@example.com")}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Apply(tc.payload, configWithAction(t, tc.action))
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if res.Outcome != tc.outcome {
				t.Errorf("Expected outcome %q, got %q", tc.outcome, res.Outcome)
			}
			if diff := cmp.Diff(tc.want, res.Payload); diff != "" {
				t.Errorf("Payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyFindings(t *testing.T) {
	res, err := Apply(String("a@x.io and b@y.io"), configWithAction(t, ActionAllow))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []Finding{{Rule: RuleEmail, Count: 2}}
	if diff := cmp.Diff(want, res.Findings); diff != "" {
		t.Errorf("Findings mismatch (-want +got):\n%s", diff)
	}

	res, _ = Apply(String("clean"), configWithAction(t, ActionAllow))
	if len(res.Findings) != 0 {
		t.Errorf("Expected no findings, got %v", res.Findings)
	}
}

func TestApplyBlockNeverLeaks(t *testing.T) {
	cfg := configWithAction(t, ActionBlock)
	secrets := []string{"jane@example.com", "4111-1111-1111-1111", "123-45-6789"}

	for _, secret := range secrets {
		res, err := Apply(Fields{"msg": String("value " + secret), "other": String(secret)}, cfg)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if res.Outcome != OutcomeBlocked {
			t.Errorf("Expected blocked for %q, got %q", secret, res.Outcome)
		}
		for k, v := range res.Payload.(Fields) {
			if strings.Contains(string(v.(String)), secret) {
				t.Errorf("Field %q leaked %q", k, secret)
			}
		}
	}
}

func TestApplyErrors(t *testing.T) {
	_, err := Apply(nil, DefaultConfig())
	var perr *InvalidPayloadError
	if !errors.As(err, &perr) {
		t.Errorf("Expected *InvalidPayloadError for nil payload, got %v", err)
	}

	_, err = Apply(String("x"), nil)
	if !errors.Is(err, ErrNilConfig) {
		t.Errorf("Expected ErrNilConfig, got %v", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := Fields{"Email": String("jane@example.com")}
	if _, err := DefaultConfig().Apply(in); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if in["Email"] != String("jane@example.com") {
		t.Errorf("Input mutated: %v", in)
	}
}

func TestGovernedResultJSON(t *testing.T) {
	res, err := DefaultConfig().Apply(Fields{"Email": String("jane@example.com"), "N": Number("2")})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	data, err := res.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	want := `{"outcome":"redacted","payload":{"Email":"***@example.com","N":2},"findings":[{"rule":"email","field":"Email","count":1}]}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
