package rmi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

type binding struct {
	ifaceType reflect.Type
	hash      string
	value     reflect.Value
}

// Registry is a Local Registry: the bind table an rmi peer uses both to
// publish the services it offers and to serve inbound calls against them.
// A Registry is also the handle auto-export binds ad-hoc callback objects
// into, which is why the stubs that pass callbacks (bank.AuthStub,
// bank.UserStub) are constructed with one.
type Registry struct {
	host string
	port int

	mu       sync.RWMutex
	bindings map[string]*binding
	listener net.Listener
	ready    chan struct{}

	log *logging.Logger
}

// NewRegistry creates a registry for host:port. Serve listens on exactly
// that address, and the same host and port are advertised in Remote
// References pointing back at objects bound here. Port 0 makes Serve pick
// an ephemeral port, which it then records as the advertised port.
func NewRegistry(host string, port int) *Registry {
	return &Registry{
		host:     host,
		port:     port,
		bindings: make(map[string]*binding),
		ready:    make(chan struct{}),
		log:      logging.GetDefault().Component("rmi"),
	}
}

// Ready is closed once Serve's listener is accepting connections, which
// is useful in tests that need to dial a registry started with port 0.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

// Addr reports the advertised host and port.
func (r *Registry) Addr() (string, int) {
	return r.host, r.port
}

// Bind publishes object under name, validated against ifaceType. object
// must implement ifaceType. Binding twice under the same name is an
// error; use Rebind to replace an existing binding.
func (r *Registry) Bind(name string, ifaceType reflect.Type, object any) error {
	return r.bind(name, ifaceType, object, false)
}

// Rebind publishes object under name, replacing any existing binding. It
// fails with ErrServerBusy once Serve has started listening.
func (r *Registry) Rebind(name string, ifaceType reflect.Type, object any) error {
	return r.bind(name, ifaceType, object, true)
}

func (r *Registry) bind(name string, ifaceType reflect.Type, object any, replace bool) error {
	if ifaceType.Kind() != reflect.Interface {
		return fmt.Errorf("rmi: Bind requires an interface type, got %s", ifaceType)
	}
	objVal := reflect.ValueOf(object)
	if !objVal.Type().Implements(ifaceType) {
		return fmt.Errorf("%w: %s does not implement %s", ErrBadArguments, objVal.Type(), ifaceType)
	}

	r.mu.Lock()
	if replace && r.listener != nil {
		r.mu.Unlock()
		return ErrServerBusy
	}
	if _, exists := r.bindings[name]; exists && !replace {
		r.mu.Unlock()
		return ErrNameTaken
	}
	r.bindings[name] = &binding{
		ifaceType: ifaceType,
		hash:      HashInterface(ifaceType),
		value:     objVal,
	}
	r.mu.Unlock()

	if exp, ok := object.(Exportable); ok {
		exp.setExportedName(name)
	}
	r.log.Debugf("bound %s as %s", name, ifaceType)
	return nil
}

// Unbind removes name from the table.
func (r *Registry) Unbind(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[name]; !ok {
		return ErrNotFound
	}
	delete(r.bindings, name)
	return nil
}

// List returns the currently bound names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve accepts connections on host:port until ctx is cancelled or the
// listener fails. Each connection is served by its own goroutine for the
// connection's lifetime, so a slow or stuck peer cannot block calls to
// other bound objects.
func (r *Registry) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", r.host, r.port))
	if err != nil {
		return fmt.Errorf("rmi: listen on %s:%d: %w", r.host, r.port, err)
	}
	r.mu.Lock()
	r.listener = listener
	if r.port == 0 {
		r.port = listener.Addr().(*net.TCPAddr).Port
	}
	r.mu.Unlock()
	close(r.ready)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	r.log.Infof("serving on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("rmi: accept: %w", err)
		}
		go r.handleConn(conn)
	}
}

func (r *Registry) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		raw, err := readFrame(conn)
		if err != nil {
			return
		}

		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			r.writeError(conn, ErrBadMethod)
			return
		}

		result, wireErr := r.dispatch(req)
		resp := response{Result: result, Error: wireErr}
		body, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := writeFrame(conn, body); err != nil {
			return
		}
	}
}

func (r *Registry) writeError(conn net.Conn, err error) {
	body, marshalErr := json.Marshal(response{Error: toWireError(err)})
	if marshalErr != nil {
		return
	}
	writeFrame(conn, body)
}

// dispatch is the Local Registry's heart: it resolves selector to a bound
// object and method entirely via reflection — no per-service generated
// code is needed. req.Args[0] carries the caller's interface hash for the
// bound service (checked against the hash the service was bound with, so
// a stale or mismatched caller fails fast rather than hitting surprising
// argument errors); req.Args[1:] are the positional method arguments.
func (r *Registry) dispatch(req request) (json.RawMessage, *wireError) {
	name, methodName, ok := strings.Cut(req.Selector, MethodSep)
	if !ok {
		return nil, toWireError(ErrBadMethod)
	}

	r.mu.RLock()
	b, ok := r.bindings[name]
	r.mu.RUnlock()
	if !ok {
		return nil, toWireError(ErrNoSuchService)
	}

	if len(req.Args) < 1 {
		return nil, toWireError(ErrBadArguments)
	}
	var clientHash string
	if err := json.Unmarshal(req.Args[0], &clientHash); err != nil {
		return nil, toWireError(ErrBadArguments)
	}
	if clientHash != b.hash {
		return nil, toWireError(ErrInterfaceMismatch)
	}

	method, ok := b.ifaceType.MethodByName(methodName)
	if !ok {
		return nil, toWireError(ErrBadMethod)
	}

	methodArgs := req.Args[1:]
	if len(methodArgs) != method.Type.NumIn() {
		return nil, toWireError(ErrBadArguments)
	}

	in := make([]reflect.Value, method.Type.NumIn())
	for i := 0; i < method.Type.NumIn(); i++ {
		v, err := DecodeValue(methodArgs[i], method.Type.In(i), r)
		if err != nil {
			return nil, toWireError(err)
		}
		in[i] = v
	}

	out := b.value.MethodByName(methodName).Call(in)

	numOut := len(out)
	hasTrailingErr := numOut > 0 && method.Type.Out(numOut-1) == errorType
	if hasTrailingErr {
		errVal := out[numOut-1]
		if !errVal.IsNil() {
			return nil, toWireError(errVal.Interface().(error))
		}
		out = out[:numOut-1]
	}

	results := make([]any, len(out))
	for i, v := range out {
		exported, err := AutoExport(v.Interface(), r)
		if err != nil {
			return nil, toWireError(err)
		}
		results[i] = exported
	}

	var resultJSON json.RawMessage
	var err error
	switch len(results) {
	case 0:
		resultJSON = nil
	case 1:
		resultJSON, err = json.Marshal(results[0])
	default:
		resultJSON, err = json.Marshal(results)
	}
	if err != nil {
		return nil, toWireError(fmt.Errorf("rmi: marshal result: %w", err))
	}
	return resultJSON, nil
}
