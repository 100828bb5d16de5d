package rmi

import (
	"reflect"
	"sync"
)

// StubFactory builds a concrete, hand-written client stub for an
// interface type out of a Remote Reference. Domain packages register one
// factory per interface they expose as a callback or service parameter
// (see bank.init).
type StubFactory func(ref RemoteRef, reg *Registry) (any, error)

var (
	stubFactoriesMu sync.RWMutex
	stubFactories   = map[reflect.Type]StubFactory{}
)

// RegisterStubFactory associates ifaceType with the factory used to turn
// an inbound Remote Reference into a value satisfying that interface.
// Call this from an init() in the package declaring the interface.
func RegisterStubFactory(ifaceType reflect.Type, factory StubFactory) {
	stubFactoriesMu.Lock()
	defer stubFactoriesMu.Unlock()
	stubFactories[ifaceType] = factory
}

func lookupStubFactory(ifaceType reflect.Type) (StubFactory, bool) {
	stubFactoriesMu.RLock()
	defer stubFactoriesMu.RUnlock()
	f, ok := stubFactories[ifaceType]
	return f, ok
}

var (
	exportInterfacesMu sync.RWMutex
	exportInterfaces   = map[reflect.Type]reflect.Type{}
)

// RegisterExportInterface declares which public interface a concrete
// Exportable type should be bound under when it is auto-exported as a
// call argument or return value. concreteType is the type actually
// passed around (e.g. *callback.Impl); ifaceType is the interface a peer
// will address it through (e.g. bank.SuccessCallback).
func RegisterExportInterface(concreteType, ifaceType reflect.Type) {
	exportInterfacesMu.Lock()
	defer exportInterfacesMu.Unlock()
	exportInterfaces[concreteType] = ifaceType
}

func lookupExportInterface(concreteType reflect.Type) (reflect.Type, bool) {
	exportInterfacesMu.RLock()
	defer exportInterfacesMu.RUnlock()
	t, ok := exportInterfaces[concreteType]
	return t, ok
}
