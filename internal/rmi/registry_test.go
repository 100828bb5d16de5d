package rmi

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

type greeter interface {
	Greet(name string) (string, error)
}

type greeterImpl struct {
	Object
	prefix string
}

func newGreeterImpl(prefix string) *greeterImpl {
	return &greeterImpl{Object: NewObject("greeterImpl"), prefix: prefix}
}

func (g *greeterImpl) Greet(name string) (string, error) {
	return g.prefix + name, nil
}

func greeterIfaceType() reflect.Type {
	return reflect.TypeOf((*greeter)(nil)).Elem()
}

func startTestRegistry(t *testing.T) (*Registry, func()) {
	t.Helper()
	reg := NewRegistry("127.0.0.1", 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Serve(ctx) }()

	select {
	case <-reg.Ready():
	case err := <-done:
		t.Fatalf("registry exited before becoming ready: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registry to start listening")
	}

	return reg, func() {
		cancel()
		<-done
	}
}

func TestBindRejectsNonImplementingObject(t *testing.T) {
	reg := NewRegistry("127.0.0.1", 0)
	if err := reg.Bind("greeter", greeterIfaceType(), struct{}{}); err == nil {
		t.Fatal("expected Bind to reject a type that does not implement the interface")
	}
}

func TestBindThenBindAgainFails(t *testing.T) {
	reg := NewRegistry("127.0.0.1", 0)
	g := newGreeterImpl("hello ")
	if err := reg.Bind("greeter", greeterIfaceType(), g); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if err := reg.Bind("greeter", greeterIfaceType(), g); err != ErrNameTaken {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if err := reg.Rebind("greeter", greeterIfaceType(), g); err != nil {
		t.Fatalf("Rebind should succeed over an existing binding: %v", err)
	}
}

func TestBindSetsExportedName(t *testing.T) {
	reg := NewRegistry("127.0.0.1", 0)
	g := newGreeterImpl("hi ")
	if err := reg.Bind("greeter", greeterIfaceType(), g); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if g.ExportedName() != "greeter" {
		t.Fatalf("ExportedName = %q, want %q", g.ExportedName(), "greeter")
	}
}

func TestCallRoundTrip(t *testing.T) {
	reg, stop := startTestRegistry(t)
	defer stop()

	g := newGreeterImpl("hello, ")
	if err := reg.Bind("greeter", greeterIfaceType(), g); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	host, port := reg.Addr()
	client := NewClient(host, port)
	defer client.Close()

	hash := HashInterface(greeterIfaceType())
	raw, err := client.Call("greeter"+MethodSep+"Greet", hash, "world")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got != "hello, world" {
		t.Fatalf("got %q, want %q", got, "hello, world")
	}
}

func TestCallWrongHashIsRejected(t *testing.T) {
	reg, stop := startTestRegistry(t)
	defer stop()

	g := newGreeterImpl("hi ")
	if err := reg.Bind("greeter", greeterIfaceType(), g); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	host, port := reg.Addr()
	client := NewClient(host, port)
	defer client.Close()

	_, err := client.Call("greeter"+MethodSep+"Greet", "not-the-real-hash", "world")
	if err != ErrInterfaceMismatch {
		t.Fatalf("expected ErrInterfaceMismatch, got %v", err)
	}
}

func TestCallNoSuchService(t *testing.T) {
	reg, stop := startTestRegistry(t)
	defer stop()

	host, port := reg.Addr()
	client := NewClient(host, port)
	defer client.Close()

	_, err := client.Call("nope"+MethodSep+"Greet", "x")
	if err != ErrNoSuchService {
		t.Fatalf("expected ErrNoSuchService, got %v", err)
	}
}

func TestHashInterfaceStableAndDistinct(t *testing.T) {
	h1 := HashInterface(greeterIfaceType())
	h2 := HashInterface(greeterIfaceType())
	if h1 != h2 {
		t.Fatal("HashInterface is not stable across calls")
	}

	type otherIface interface {
		Greet(name string) (string, error)
		Extra()
	}
	h3 := HashInterface(reflect.TypeOf((*otherIface)(nil)).Elem())
	if h1 == h3 {
		t.Fatal("distinct interfaces hashed to the same value")
	}
}
