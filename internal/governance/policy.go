package governance

import "encoding/json"

// BlockedSentinel replaces blocked string content.
const BlockedSentinel = "BLOCKED"

// Outcome is what Apply did to a payload.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeRedacted Outcome = "redacted"
	OutcomeBlocked  Outcome = "blocked"
)

// GovernedResult is the payload to emit and how it was produced.
type GovernedResult struct {
	Outcome  Outcome
	Payload  Payload
	Findings []Finding
}

// MarshalJSON encodes the result with the payload as plain JSON.
func (r GovernedResult) MarshalJSON() ([]byte, error) {
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return json.Marshal(struct {
		Outcome  Outcome   `json:"outcome"`
		Payload  any       `json:"payload"`
		Findings []Finding `json:"findings"`
	}{
		Outcome:  r.Outcome,
		Payload:  ToAny(r.Payload),
		Findings: findings,
	})
}

// Apply runs detection on payload and then the configured action. A nil
// payload yields *InvalidPayloadError. Schema validation is not part of
// Apply; use ValidateSchema or Config.Validate.
func Apply(payload Payload, cfg *Config) (GovernedResult, error) {
	if cfg == nil {
		return GovernedResult{}, ErrNilConfig
	}

	switch payload.(type) {
	case String, Fields:
	default:
		return GovernedResult{}, &InvalidPayloadError{Type: typeName(payload)}
	}

	if !PayloadContainsPII(payload, cfg.rules) {
		return GovernedResult{Outcome: OutcomePassed, Payload: payload}, nil
	}

	findings := Scan(payload, cfg.rules)

	switch cfg.onContainsPII {
	case ActionAllow:
		return GovernedResult{Outcome: OutcomePassed, Payload: payload, Findings: findings}, nil
	case ActionBlock:
		return GovernedResult{Outcome: OutcomeBlocked, Payload: block(payload), Findings: findings}, nil
	default:
		return GovernedResult{Outcome: OutcomeRedacted, Payload: redact(payload, cfg.rules), Findings: findings}, nil
	}
}

func redact(payload Payload, rules []*CompiledRule) Payload {
	switch p := payload.(type) {
	case String:
		return String(RedactString(string(p), rules))
	case Fields:
		return RedactPayload(p, rules)
	default:
		return payload
	}
}

// block replaces every string in payload with BlockedSentinel. Mappings keep
// their keys; nested Fields and List are scrubbed too.
func block(payload Payload) Payload {
	switch p := payload.(type) {
	case String:
		return String(BlockedSentinel)
	case Fields:
		return blockValue(p).(Fields)
	default:
		return payload
	}
}

func blockValue(v Value) Value {
	switch t := v.(type) {
	case String:
		return String(BlockedSentinel)
	case List:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = blockValue(item)
		}
		return out
	case Fields:
		out := make(Fields, len(t))
		for k, item := range t {
			out[k] = blockValue(item)
		}
		return out
	default:
		return v
	}
}
