package gitlib

import "time"

// Signature is the identity stamped on a commit as author or committer.
// When carries the original timezone offset.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}
