package cmd

import "fmt"

// InvalidURLError indicates a target that cannot be audited.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

// AuditFailedError signals that an audit produced an error result.
type AuditFailedError struct {
	URL     string
	Message string
}

func (e *AuditFailedError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("audit failed: %s", e.Message)
	}
	return fmt.Sprintf("audit of %s failed: %s", e.URL, e.Message)
}
