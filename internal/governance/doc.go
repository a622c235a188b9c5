// Package governance detects, redacts and blocks personally identifiable
// information in log payloads.
//
// A Config holds an ordered set of compiled rules, the required top-level
// fields of structured payloads and the action taken when PII is found.
// Configs are immutable; a Store publishes a new one atomically on reload, so
// Apply may be called from any number of goroutines.
//
//	store := governance.NewStore(nil) // built-in rules, redact
//	res, err := store.Apply(governance.String("Contact: jane@example.com"))
//	// res.Outcome == governance.OutcomeRedacted
//	// res.Payload == governance.String("Contact: ***@example.com")
//
// Payloads are either a String or Fields. Only String values are inspected;
// nested Fields and List values pass through redaction unchanged.
package governance
