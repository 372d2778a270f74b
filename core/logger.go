package core

// Identity is the minimal authenticated caller info carried across layers;
// it mirrors the subject of the bearer token issued by the identity provider.
type Identity struct {
	ID    string
	Email string
}

// Logger is any leveled application logger.
// args may carry an error, extra context maps and at most one Identity.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
