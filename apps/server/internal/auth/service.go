package auth

// Service is the identity contract consumed by the HTTP handlers. Players
// are guest-first: a minted guest id is enough to play and accrue daily
// stats, registering just makes the same id portable across devices.
type Service interface {
	Guest() (playerID, sessionToken string)
	Register(username, password string) (playerID, sessionToken string, err error)
	Login(username, password string) (playerID, sessionToken string, err error)
	ResolveSession(token string) (playerID, username string, ok bool)
	Logout(token string)
	Close() error
}
