package governance

import "testing"

func BenchmarkRedactString(b *testing.B) {
	rules := DefaultConfig().Rules()
	msg := "user jane@example.com paid with 4111-1111-1111-1111, ssn 123-45-6789"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = RedactString(msg, rules)
	}
}

func BenchmarkApplyClean(b *testing.B) {
	cfg := DefaultConfig()
	payload := Fields{"User": String("jane"), "Action": String("login"), "Attempt": Number("3")}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := cfg.Apply(payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApplyRedact(b *testing.B) {
	cfg := DefaultConfig()
	payload := Fields{"User": String("jane"), "Email": String("jane@example.com"), "Attempt": Number("3")}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := cfg.Apply(payload); err != nil {
			b.Fatal(err)
		}
	}
}
