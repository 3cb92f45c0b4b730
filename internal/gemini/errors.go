package gemini

import "fmt"

// ExhaustedError reports that every key and model combination was tried the
// configured number of times without a successful response.
type ExhaustedError struct {
	Attempts int
	Keys     int
	Models   int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all gemini keys and models exhausted after %d attempts (%d keys × %d models): %v",
		e.Attempts, e.Keys, e.Models, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// MalformedResponseError reports that the API call succeeded but the
// returned content could not be decoded. It is never retried: the quota was
// already spent and a retry would spend more on the same prompt.
type MalformedResponseError struct {
	Cause error
	Raw   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unusable gemini response: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
