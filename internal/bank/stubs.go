package bank

import (
	"encoding/json"
	"reflect"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
)

// Interface reflect.Types used to compute and check signature hashes.
// Hand-written once per domain interface, matching the stub types below.
var (
	peerServiceType     = reflect.TypeOf((*PeerService)(nil)).Elem()
	authServiceType     = reflect.TypeOf((*AuthService)(nil)).Elem()
	userServiceType     = reflect.TypeOf((*UserService)(nil)).Elem()
	successCallbackType = reflect.TypeOf((*SuccessCallback)(nil)).Elem()
)

func init() {
	rmi.RegisterStubFactory(successCallbackType, func(ref rmi.RemoteRef, reg *rmi.Registry) (any, error) {
		return NewCallbackStub(ref), nil
	})
}

// --- PeerStub: client side of the peer-to-peer token/replication RPC ---

// PeerStub implements PeerService over an rmi.Client. None of its methods
// carry a remote-object argument, so it needs no local registry.
type PeerStub struct {
	client *rmi.Client
	hash   string
}

// NewPeerStub wraps client as a PeerService, bound to the "peer" service
// name on the far side.
func NewPeerStub(client *rmi.Client) *PeerStub {
	return &PeerStub{client: client, hash: rmi.HashInterface(peerServiceType)}
}

func (s *PeerStub) selector(method string) string { return "peer" + rmi.MethodSep + method }

func (s *PeerStub) RequestToken() bool {
	raw, err := s.client.Call(s.selector("RequestToken"), s.hash)
	if err != nil {
		return false
	}
	return decodeBool(raw)
}

func (s *PeerStub) ReceiveSync(logs []ATMCommandWire, passToken bool) bool {
	raw, err := s.client.Call(s.selector("ReceiveSync"), s.hash, logs, passToken)
	if err != nil {
		return false
	}
	return decodeBool(raw)
}

func (s *PeerStub) GetTokenStatus() bool {
	raw, err := s.client.Call(s.selector("GetTokenStatus"), s.hash)
	if err != nil {
		return false
	}
	return decodeBool(raw)
}

// RequestTokenErr is like RequestToken but surfaces the underlying
// transport error instead of folding it into false, which is what the
// coordinator needs to tell "peer said no" apart from "peer unreachable".
func (s *PeerStub) RequestTokenErr() (bool, error) {
	raw, err := s.client.Call(s.selector("RequestToken"), s.hash)
	if err != nil {
		return false, err
	}
	return decodeBool(raw), nil
}

// ReceiveSyncErr is ReceiveSync with the transport error surfaced.
func (s *PeerStub) ReceiveSyncErr(logs []ATMCommandWire, passToken bool) (bool, error) {
	raw, err := s.client.Call(s.selector("ReceiveSync"), s.hash, logs, passToken)
	if err != nil {
		return false, err
	}
	return decodeBool(raw), nil
}

// --- CallbackStub: server side holds this to call back into a client ---

// CallbackStub implements SuccessCallback over the Remote Reference the
// framework captured when a client passed its callback object as an
// argument.
type CallbackStub struct {
	ref    rmi.RemoteRef
	client *rmi.Client
}

// NewCallbackStub builds a stub pointed at ref.
func NewCallbackStub(ref rmi.RemoteRef) *CallbackStub {
	return &CallbackStub{ref: ref, client: rmi.NewClient(ref.Host, ref.Port)}
}

func (s *CallbackStub) Ref() rmi.RemoteRef { return s.ref }

func (s *CallbackStub) Notify(message string, level string) error {
	selector := s.ref.ServiceName + rmi.MethodSep + "Notify"
	_, err := s.client.Call(selector, s.ref.SignatureHash, message, level)
	return err
}

// --- AuthStub: client side of the always-bound "auth" service ---

// AuthStub implements AuthService. Login auto-exports its callback
// argument into reg, so a caller must supply a registry it is already
// serving from (or about to serve from) in order to receive the
// resulting Notify calls.
type AuthStub struct {
	client *rmi.Client
	reg    *rmi.Registry
	hash   string
}

// NewAuthStub wraps client as an AuthService bound to "auth" on the far
// side. With a nil reg, every Login call fails with
// rmi.ErrNoLocalRegistry, whatever callback it is given.
func NewAuthStub(client *rmi.Client, reg *rmi.Registry) *AuthStub {
	return &AuthStub{client: client, reg: reg, hash: rmi.HashInterface(authServiceType)}
}

func (s *AuthStub) Login(cardNumber, pin string, callback SuccessCallback) (bool, string, string, error) {
	if s.reg == nil {
		return false, "", "", rmi.ErrNoLocalRegistry
	}
	cbArg, err := rmi.AutoExport(callback, s.reg)
	if err != nil {
		return false, "", "", err
	}
	raw, err := s.client.Call("auth"+rmi.MethodSep+"Login", s.hash, cardNumber, pin, cbArg)
	if err != nil {
		return false, "", "", err
	}
	var parts [3]json.RawMessage
	if err := decodeTuple(raw, parts[:]); err != nil {
		return false, "", "", err
	}
	var success bool
	var message, sessionID string
	if err := json.Unmarshal(parts[0], &success); err != nil {
		return false, "", "", err
	}
	if err := json.Unmarshal(parts[1], &message); err != nil {
		return false, "", "", err
	}
	if err := json.Unmarshal(parts[2], &sessionID); err != nil {
		return false, "", "", err
	}
	return success, message, sessionID, nil
}

// --- UserStub: client side of a session-bound UserService ---

// UserStub implements UserService bound to a single session-id on the
// far side.
type UserStub struct {
	client    *rmi.Client
	reg       *rmi.Registry
	sessionID string
	hash      string
}

// NewUserStub wraps client as the UserService bound under sessionID.
func NewUserStub(sessionID string, client *rmi.Client, reg *rmi.Registry) *UserStub {
	return &UserStub{client: client, reg: reg, sessionID: sessionID, hash: rmi.HashInterface(userServiceType)}
}

func (s *UserStub) selector(method string) string { return s.sessionID + rmi.MethodSep + method }

func (s *UserStub) GetBalance() (int64, error) {
	raw, err := s.client.Call(s.selector("GetBalance"), s.hash)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := json.Unmarshal(raw, &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *UserStub) GetInfo() (User, error) {
	raw, err := s.client.Call(s.selector("GetInfo"), s.hash)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStub) GetTransactionHistory() ([]Transaction, error) {
	raw, err := s.client.Call(s.selector("GetTransactionHistory"), s.hash)
	if err != nil {
		return nil, err
	}
	var txs []Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *UserStub) Deposit(amount int64, callback SuccessCallback) error {
	return s.callWithCallback("Deposit", callback, amount)
}

func (s *UserStub) Withdraw(amount int64, callback SuccessCallback) error {
	return s.callWithCallback("Withdraw", callback, amount)
}

func (s *UserStub) Transfer(toCard string, amount int64, callback SuccessCallback) error {
	return s.callWithCallback("Transfer", callback, toCard, amount)
}

func (s *UserStub) ChangePin(newPIN string, callback SuccessCallback) error {
	return s.callWithCallback("ChangePin", callback, newPIN)
}

func (s *UserStub) Logout(callback SuccessCallback) error {
	return s.callWithCallback("Logout", callback)
}

func (s *UserStub) callWithCallback(method string, callback SuccessCallback, leadingArgs ...any) error {
	if s.reg == nil {
		return rmi.ErrNoLocalRegistry
	}
	cbArg, err := rmi.AutoExport(callback, s.reg)
	if err != nil {
		return err
	}
	args := append(append([]any{}, leadingArgs...), cbArg)
	_, err = s.client.Call(s.selector(method), s.hash, args...)
	return err
}

func decodeBool(raw json.RawMessage) bool {
	var b bool
	json.Unmarshal(raw, &b)
	return b
}

func decodeTuple(raw json.RawMessage, into []json.RawMessage) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return err
	}
	if len(parts) != len(into) {
		return rmi.ErrBadArguments
	}
	copy(into, parts)
	return nil
}
