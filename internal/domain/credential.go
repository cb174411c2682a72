package domain

// Credential is the single OAuth2 credential set tracked per deployment:
// the last authorization code plus the access/refresh token pair obtained
// with it. Exactly one row of these is ever persisted.
type Credential struct {
	Code         string
	AuthToken    string
	RefreshToken string
}

// Empty reports whether no usable token material is present.
func (c Credential) Empty() bool {
	return c.Code == "" && c.AuthToken == "" && c.RefreshToken == ""
}
