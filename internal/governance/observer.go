package governance

import "time"

// Observer is told about governance decisions made on behalf of a caller.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveResult(result GovernedResult, elapsed time.Duration)
	ObserveViolation(result ValidationResult)
}

// Observers fans out to every non-nil Observer in the slice.
type Observers []Observer

// ObserveResult implements Observer.
func (o Observers) ObserveResult(result GovernedResult, elapsed time.Duration) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveResult(result, elapsed)
		}
	}
}

// ObserveViolation implements Observer.
func (o Observers) ObserveViolation(result ValidationResult) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveViolation(result)
		}
	}
}
