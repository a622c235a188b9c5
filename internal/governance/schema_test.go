package governance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateSchema(t *testing.T) {
	required := []string{"User", "Email", "Amount"}

	tests := []struct {
		name string
		data Fields
		want ValidationResult
	}{
		{
			name: "all present",
			data: Fields{"User": String("jdoe"), "Email": String("e@x.com"), "Amount": Number("1")},
			want: ValidationResult{Valid: true, MissingFields: []string{}},
		},
		{
			name: "amount missing",
			data: Fields{"User": String("jdoe"), "Email": String("e@x.com")},
			want: ValidationResult{Valid: false, MissingFields: []string{"Amount"}},
		},
		{
			name: "order follows required fields",
			data: Fields{"Email": String("e@x.com")},
			want: ValidationResult{Valid: false, MissingFields: []string{"User", "Amount"}},
		},
		{
			name: "null counts as present",
			data: Fields{"User": Null{}, "Email": String(""), "Amount": Null{}},
			want: ValidationResult{Valid: true, MissingFields: []string{}},
		},
		{
			name: "nested keys do not count",
			data: Fields{"User": String("jdoe"), "Meta": Fields{"Email": String("e@x.com"), "Amount": Number("2")}},
			want: ValidationResult{Valid: false, MissingFields: []string{"Email", "Amount"}},
		},
		{
			name: "empty payload",
			data: Fields{},
			want: ValidationResult{Valid: false, MissingFields: []string{"User", "Email", "Amount"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateSchema(tc.data, required)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ValidateSchema mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("no required fields", func(t *testing.T) {
		got := ValidateSchema(Fields{}, nil)
		if !got.Valid || len(got.MissingFields) != 0 {
			t.Errorf("Expected valid result, got %+v", got)
		}
	})
}
