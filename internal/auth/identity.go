package auth

// Identity is the minimal user profile kept in a session after a completed
// handshake. Platform logins fill Username and ProfileImageURL; identity
// provider logins fill Email.
type Identity struct {
	Provider        string `json:"provider"`                    // strategy that authenticated the user, e.g. "twitter", "google"
	ID              string `json:"id"`                          // provider-scoped user id
	Name            string `json:"name,omitempty"`              // display name
	Username        string `json:"username,omitempty"`          // platform handle
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Email           string `json:"email,omitempty"`
}
