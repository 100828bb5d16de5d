package rmi

import "encoding/json"

// request is the wire shape of one call: a method selector of the form
// "service@method" and a positional argument list whose first element is
// the caller's interface signature hash. Each argument is carried as its own raw JSON
// document so the receiver can decode it against the declared parameter
// type once dispatch has resolved which method is being called.
type request struct {
	Selector string            `json:"selector"`
	Args     []json.RawMessage `json:"args"`
}

// response is the wire shape of one reply. Exactly one of Result or Error
// is populated.
type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

// wireError carries an error kind (one of the advisory names from the
// framework's error taxonomy) plus a human-readable message across the
// wire, since Go error values themselves are not serialisable.
type wireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func encodeArg(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// isRemoteRef reports whether raw decodes as a JSON object carrying the
// __remote_ref__ marker, and if so returns the decoded reference.
func isRemoteRef(raw json.RawMessage) (RemoteRef, bool) {
	var probe struct {
		IsRemoteRef bool `json:"__remote_ref__"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || !probe.IsRemoteRef {
		return RemoteRef{}, false
	}
	var ref RemoteRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return RemoteRef{}, false
	}
	return ref, true
}
