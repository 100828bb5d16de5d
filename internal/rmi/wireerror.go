package rmi

import "errors"

// Kinder is implemented by domain error types (see storage.DomainError)
// that want their own stable name to cross the wire instead of being
// flattened to "InternalError". The framework's own sentinel errors are
// named through the wireKinds table below, not through Kinder; any other
// kind arrives on the far side as a *RemoteError carrying that kind
// string, since Go errors don't otherwise survive serialization.
type Kinder interface {
	Kind() string
}

var wireKinds = map[error]string{
	ErrNameTaken:         "NameTaken",
	ErrServerBusy:        "ServerBusy",
	ErrNotFound:          "NotFound",
	ErrBadMethod:         "BadMethod",
	ErrNoSuchService:     "NoSuchService",
	ErrInterfaceMismatch: "InterfaceMismatch",
	ErrBadArguments:      "BadArguments",
	ErrNoLocalRegistry:   "NoLocalRegistry",
	ErrNotExportable:     "NotExportable",
	ErrUnexpectedRemoteT: "UnexpectedRemoteRef",
}

var kindsToErrors = func() map[string]error {
	m := make(map[string]error, len(wireKinds))
	for err, kind := range wireKinds {
		m[kind] = err
	}
	return m
}()

func toWireError(err error) *wireError {
	if err == nil {
		return nil
	}
	for sentinel, kind := range wireKinds {
		if errors.Is(err, sentinel) {
			return &wireError{Kind: kind, Message: err.Error()}
		}
	}
	if k, ok := err.(Kinder); ok {
		return &wireError{Kind: k.Kind(), Message: err.Error()}
	}
	return &wireError{Kind: "InternalError", Message: err.Error()}
}

// RemoteError is what a Client.Call reconstructs a wireError into when
// its Kind does not match one of the framework's own sentinels. Domain
// error kinds (e.g. storage's "DomainError") surface this way so a
// caller can still branch on Kind even though the original Go type
// didn't survive the wire.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func fromWireError(w *wireError) error {
	if w == nil {
		return nil
	}
	if sentinel, ok := kindsToErrors[w.Kind]; ok {
		return sentinel
	}
	return &RemoteError{Kind: w.Kind, Message: w.Message}
}
