package models

import "time"

// Artifact is a produced output file addressable only via its token.
//
// The token is the sole external identifier and must not be guessable
// (a random UUID, 122 bits of entropy). ExpireAt is fixed at creation
// from the owner's plan at that moment; later plan changes never alter
// an already-minted artifact's expiry.
type Artifact struct {
	ID         string
	Token      string
	UserID     string
	FileName   string
	StorageKey string
	Size       int64
	CreatedAt  time.Time
	ExpireAt   time.Time
}

// Expired reports whether the artifact is past its expiry at the given
// instant. Expired artifacts behave as absent for download purposes but
// are reported distinctly to the UI layer.
func (a *Artifact) Expired(now time.Time) bool {
	return now.After(a.ExpireAt)
}
