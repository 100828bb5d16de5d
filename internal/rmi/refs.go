package rmi

// MethodSep separates a service name from a method name in a wire
// selector, e.g. "auth@Login".
const MethodSep = "@"

// ServiceNameSep separates a class name from an object id in a synthetic,
// auto-exported service name, e.g. "SuccessCallbackImpl#3fae2c...".
const ServiceNameSep = "#"

// RemoteRef is the serialisable descriptor of a bound remote object. Two
// references are equal iff every field matches.
type RemoteRef struct {
	IsRemoteRef   bool   `json:"__remote_ref__"`
	ServiceName   string `json:"service_name"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	SignatureHash string `json:"signature_hash"`
}

// remoteRefProvider is implemented by generated/hand-written client stubs
// so the framework can recognize "this argument is already remote" and
// forward its reference instead of trying to auto-export it.
type remoteRefProvider interface {
	Ref() RemoteRef
}
