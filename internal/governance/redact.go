package governance

// RedactString applies every rule in order, replacing all non-overlapping
// matches with the rule's replacement template. Each rule sees the output of
// the rules before it.
//
// The pipeline is not guaranteed to be idempotent: a later rule may match
// text introduced by an earlier rule's replacement. The default replacements
// do not match any default rule.
func RedactString(text string, rules []*CompiledRule) string {
	if text == "" {
		return text
	}

	redacted := text
	for _, rule := range rules {
		redacted = rule.regex.ReplaceAllString(redacted, rule.rule.Replacement)
	}

	return redacted
}

// RedactPayload returns a copy of data with every top-level String value
// redacted. Other values, including nested Fields and List, are copied as is.
// The key set is never changed and data is never mutated.
func RedactPayload(data Fields, rules []*CompiledRule) Fields {
	redacted := make(Fields, len(data))
	for key, value := range data {
		if s, ok := value.(String); ok {
			redacted[key] = String(RedactString(string(s), rules))
			continue
		}
		redacted[key] = value
	}
	return redacted
}
