package sitemap

import (
	"errors"
	"fmt"
)

// ErrNoSitemap is returned by Discover when neither the conventional
// locations nor robots.txt yield a sitemap URL.
var ErrNoSitemap = errors.New("no sitemap found")

// FetchError reports a failed retrieval of a sitemap document. Status is
// the HTTP status code when the server answered, 0 otherwise.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: received HTTP status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a document that could not be understood as a
// sitemap: malformed XML or an unrecognized root element.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a single sitemap entry dropped during parsing.
// It never fails the surrounding document.
type ValidationError struct {
	Source string
	Loc    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Loc != "" {
		return fmt.Sprintf("entry %q in %s: %s", e.Loc, e.Source, e.Reason)
	}
	return fmt.Sprintf("entry in %s: %s", e.Source, e.Reason)
}
