package flows

// Deps groups flow dependency sets. session.State builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Login   LoginDeps
	Logout  LogoutDeps
	Refresh RefreshDeps
	Profile ProfileDeps
}
