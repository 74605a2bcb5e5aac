package model

// User is the slice of the user directory this subsystem needs: an internal
// id for correlation metadata and an email for the provider checkout.
type User struct {
	ID    string
	Email string
	Name  string
}
