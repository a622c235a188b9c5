package governance

// ValidationResult is the outcome of a required-field check.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missingFields"`
}

// ValidateSchema checks that every required field is a top-level key of
// data. Any value counts as present, including Null. MissingFields keeps the
// order of requiredFields.
func ValidateSchema(data Fields, requiredFields []string) ValidationResult {
	missing := make([]string, 0)
	for _, field := range requiredFields {
		if _, ok := data[field]; !ok {
			missing = append(missing, field)
		}
	}

	return ValidationResult{
		Valid:         len(missing) == 0,
		MissingFields: missing,
	}
}
