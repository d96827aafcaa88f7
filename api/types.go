// Package api defines the request executor the session subsystem talks to:
// the three authentication calls of the EMR backend and the structured
// results they return.
package api

// Identity is the authenticated user's profile as returned by the
// "current user" query. Absence of an Identity means "not authenticated".
type Identity struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	UserType     string   `json:"user_type"`
	FacilityID   string   `json:"facility,omitempty"`
	FacilityName string   `json:"facility_name,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
}

// FullName returns the user's display name.
func (i Identity) FullName() string {
	if i.FirstName == "" && i.LastName == "" {
		return i.Username
	}
	return i.FirstName + " " + i.LastName
}

// Credentials carries the sign-in form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the access/refresh pair issued by the login and token
// refresh endpoints.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
