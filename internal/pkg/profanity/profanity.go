/*
Package profanity wraps the go-away profanity detector behind the small
filter contract the chat hub consumes.
*/
package profanity

import (
	goaway "github.com/TwiN/go-away"
)

// Detector judges whether message content contains profanity.
type Detector struct {
	detector *goaway.ProfanityDetector
}

// NewDetector constructs a Detector with go-away's default dictionary and
// sanitizers.
func NewDetector() *Detector {
	return &Detector{
		detector: goaway.NewProfanityDetector(),
	}
}

// IsProfane reports whether the given text contains profanity.
func (d *Detector) IsProfane(text string) bool {
	return d.detector.IsProfane(text)
}
