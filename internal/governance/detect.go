package governance

import "sort"

// Finding records how often one rule matched, optionally within one field.
type Finding struct {
	Rule  string `json:"rule"`
	Field string `json:"field,omitempty"`
	Count int    `json:"count"`
}

// ContainsPII reports whether any rule matches text. Rules are checked in
// order and the first match wins.
func ContainsPII(text string, rules []*CompiledRule) bool {
	if text == "" {
		return false
	}
	for _, rule := range rules {
		if rule.regex.MatchString(text) {
			return true
		}
	}
	return false
}

// FieldsContainPII reports whether any top-level String value of data
// contains PII.
func FieldsContainPII(data Fields, rules []*CompiledRule) bool {
	for _, value := range data {
		if s, ok := value.(String); ok && ContainsPII(string(s), rules) {
			return true
		}
	}
	return false
}

// PayloadContainsPII dispatches on the payload kind.
func PayloadContainsPII(payload Payload, rules []*CompiledRule) bool {
	switch p := payload.(type) {
	case String:
		return ContainsPII(string(p), rules)
	case Fields:
		return FieldsContainPII(p, rules)
	default:
		return false
	}
}

// Scan counts matches of every rule against the unmodified payload. Findings
// are ordered by rule, then by field name.
func Scan(payload Payload, rules []*CompiledRule) []Finding {
	findings := make([]Finding, 0)

	switch p := payload.(type) {
	case String:
		for _, rule := range rules {
			if n := len(rule.regex.FindAllStringIndex(string(p), -1)); n > 0 {
				findings = append(findings, Finding{Rule: rule.rule.Name, Count: n})
			}
		}
	case Fields:
		keys := make([]string, 0, len(p))
		for k, v := range p {
			if _, ok := v.(String); ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for _, rule := range rules {
			for _, key := range keys {
				text := string(p[key].(String))
				if n := len(rule.regex.FindAllStringIndex(text, -1)); n > 0 {
					findings = append(findings, Finding{Rule: rule.rule.Name, Field: key, Count: n})
				}
			}
		}
	}

	return findings
}
