package domain

// User is the authenticated principal returned by a user backend.
// This is the core domain model - it has no external dependencies.
// The backend owns the principal; this component only reads it.
type User struct {
	// Username is the unique identifier asserted by the upstream SP.
	Username string

	// Email is the user's mail address, if the backend knows one.
	Email string

	// DisplayName is a human-readable name, if the backend knows one.
	DisplayName string
}
