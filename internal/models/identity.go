package models

// Identity is the already-authenticated caller supplied by the facility-hub
// gateway. The chat service never verifies credentials itself.
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Valid reports whether the identity carries enough to scope a request.
func (i Identity) Valid() bool {
	return i.ID != "" && i.Department != ""
}
