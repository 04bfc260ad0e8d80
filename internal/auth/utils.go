package auth

import "github.com/google/uuid"

// newOpaqueSecret mints a fresh random token suitable for use as a refresh
// token. Collision probability is the same as uuid.NewRandom's.
func newOpaqueSecret() string {
	return uuid.NewString()
}
