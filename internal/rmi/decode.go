package rmi

import (
	"encoding/json"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// DecodeValue decodes raw into a value assignable to paramType. If
// paramType is an interface and raw carries a Remote Reference, the value
// is built by the stub factory registered for that interface instead of
// being unmarshalled directly — this is how a remote callback argument
// becomes a locally callable stub on the receiving side. The registry's
// dispatch uses it for inbound call arguments; the hand-written stubs in
// package bank decode their return values with json.Unmarshal instead.
func DecodeValue(raw json.RawMessage, paramType reflect.Type, reg *Registry) (reflect.Value, error) {
	if paramType.Kind() == reflect.Interface && paramType != errorType {
		if ref, ok := isRemoteRef(raw); ok {
			factory, ok := lookupStubFactory(paramType)
			if !ok {
				return reflect.Value{}, ErrUnexpectedRemoteT
			}
			v, err := factory(ref, reg)
			if err != nil {
				return reflect.Value{}, err
			}
			rv := reflect.ValueOf(v)
			if !rv.Type().Implements(paramType) {
				return reflect.Value{}, ErrBadArguments
			}
			return rv, nil
		}
	}

	ptr := reflect.New(paramType)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, ErrBadArguments
	}
	return ptr.Elem(), nil
}

// AutoExport inspects a value about to cross the wire (either an outgoing
// call argument or a returned result). If it implements Exportable it is
// bound into reg under its synthetic "Class#ID" name — idempotently, so
// passing the same object twice reuses the first binding — and a
// RemoteRef is returned in its place. Any other value passes through
// unchanged.
func AutoExport(v any, reg *Registry) (any, error) {
	if v == nil {
		return nil, nil
	}
	if provider, ok := v.(remoteRefProvider); ok {
		return provider.Ref(), nil
	}
	exp, ok := v.(Exportable)
	if !ok {
		return v, nil
	}
	name := SyntheticName(exp)
	if exp.ExportedName() == "" {
		if err := reg.Bind(name, exportableInterfaceOf(exp), v); err != nil && err != ErrNameTaken {
			return nil, err
		}
	}
	return RemoteRef{
		IsRemoteRef:   true,
		ServiceName:   name,
		Host:          reg.host,
		Port:          reg.port,
		SignatureHash: HashInterface(exportableInterfaceOf(exp)),
	}, nil
}

// exportableInterfaceOf resolves the interface type under which an
// auto-exported object should be bound. Domain types register their own
// public interface via RegisterExportInterface; objects that never do so
// are bound under rmi.Exportable itself, which is enough to export them
// but carries no domain methods for a peer to call.
func exportableInterfaceOf(exp Exportable) reflect.Type {
	if t, ok := lookupExportInterface(reflect.TypeOf(exp)); ok {
		return t
	}
	return reflect.TypeOf((*Exportable)(nil)).Elem()
}
