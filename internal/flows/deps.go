package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Validate ValidateDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
}

// UserRecord is the flow-level view of a stored user.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Active       bool
	Profile      map[string]string
}
