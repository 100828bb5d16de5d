package coordinator

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/events"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/executor"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/queue"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
)

var peerServiceType = reflect.TypeOf((*bank.PeerService)(nil)).Elem()

// fakeWriter is a minimal in-memory bank.Writer, enough to drive the
// executor beneath each coordinator under test without a real database.
type fakeWriter struct {
	balances map[string]int64
	cursors  map[int]uint64
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{balances: map[string]int64{}, cursors: map[int]uint64{}}
}

func (w *fakeWriter) ChangePin(cardNumber, newPIN string) error { return nil }

func (w *fakeWriter) Deposit(cardNumber string, amount int64, ts int64) error {
	w.balances[cardNumber] += amount
	return nil
}

func (w *fakeWriter) Withdraw(cardNumber string, amount int64, ts int64) error {
	w.balances[cardNumber] -= amount
	return nil
}

func (w *fakeWriter) Transfer(fromCard, toCard string, amount int64, ts int64) error {
	w.balances[fromCard] -= amount
	w.balances[toCard] += amount
	return nil
}

func (w *fakeWriter) LastAppliedSeq(originPeerID int) (uint64, error) {
	return w.cursors[originPeerID], nil
}

func (w *fakeWriter) RecordAppliedSeq(originPeerID int, seq uint64) error {
	if seq > w.cursors[originPeerID] {
		w.cursors[originPeerID] = seq
	}
	return nil
}

// peerHarness bundles one peer's full coordinator stack for the test.
type peerHarness struct {
	id    int
	reg   *rmi.Registry
	queue *queue.CommandQueue
	ex    *executor.Executor
	em    *events.Emitter
	co    *Coordinator
	w     *fakeWriter
}

func newPeerHarness(t *testing.T, id int) *peerHarness {
	t.Helper()
	w := newFakeWriter()
	h := &peerHarness{
		id:    id,
		reg:   rmi.NewRegistry("127.0.0.1", 0),
		queue: queue.New(),
		ex:    executor.New(w, id),
		em:    events.New(8),
		w:     w,
	}
	return h
}

// wireTogether constructs each peer's Coordinator (peer a starts holding
// the token) and points each at a PeerStub dialed into the other's
// registry. Must run after both registries are already serving, since
// NewPeerStub needs a live address.
func wireTogether(t *testing.T, a, b *peerHarness) {
	t.Helper()
	aHost, aPort := a.reg.Addr()
	bHost, bPort := b.reg.Addr()

	a.co = New(Config{TPoll: 20 * time.Millisecond, TRequest: 200 * time.Millisecond},
		a.queue, a.ex, a.em, bank.NewPeerStub(rmi.NewClient(bHost, bPort)), a.id, true)
	b.co = New(Config{TPoll: 20 * time.Millisecond, TRequest: 200 * time.Millisecond},
		b.queue, b.ex, b.em, bank.NewPeerStub(rmi.NewClient(aHost, aPort)), b.id, false)

	if err := a.reg.Bind("peer", peerServiceType, a.co); err != nil {
		t.Fatalf("bind peer a: %v", err)
	}
	if err := b.reg.Bind("peer", peerServiceType, b.co); err != nil {
		t.Fatalf("bind peer b: %v", err)
	}
}

func startServing(t *testing.T, ctx context.Context, h *peerHarness) {
	t.Helper()
	go h.reg.Serve(ctx)
	<-h.reg.Ready()
}

func TestTokenDemandAndPass(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newPeerHarness(t, 1)
	b := newPeerHarness(t, 2)
	startServing(t, ctx, a)
	startServing(t, ctx, b)
	wireTogether(t, a, b)

	go a.co.Run(ctx)
	go b.co.Run(ctx)
	go a.em.Run(ctx)
	go b.em.Run(ctx)

	// Peer 2 has a pending write but no token; it must request and
	// receive it from peer 1, which is idle.
	b.queue.Add(bank.ATMCommand{Kind: bank.CmdDeposit, PeerID: 2, CardNumber: "111111", Amount: 500})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("deposit never applied on peer 2: balances=%v", b.w.balances)
		default:
		}
		if b.w.balances["111111"] == 500 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTokenFailoverOnUnreachablePeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newPeerHarness(t, 1)
	startServing(t, ctx, a)

	// Point peer 1 at a port nothing is listening on, so RequestToken
	// always fails with a connection error and the failover path fires.
	a.co = New(Config{TPoll: 20 * time.Millisecond, TRequest: 100 * time.Millisecond},
		a.queue, a.ex, a.em, bank.NewPeerStub(rmi.NewClient("127.0.0.1", 1)), a.id, false)
	if err := a.reg.Bind("peer", peerServiceType, a.co); err != nil {
		t.Fatalf("bind peer: %v", err)
	}

	go a.co.Run(ctx)
	go a.em.Run(ctx)

	a.queue.Add(bank.ATMCommand{Kind: bank.CmdDeposit, PeerID: 1, CardNumber: "222222", Amount: 100})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("deposit never applied after failover: balances=%v", a.w.balances)
		default:
		}
		if a.w.balances["222222"] == 100 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetTokenStatusReflectsLocalState(t *testing.T) {
	h := newPeerHarness(t, 1)
	h.co = New(DefaultConfig(), h.queue, h.ex, h.em, nil, h.id, true)
	if !h.co.GetTokenStatus() {
		t.Fatal("expected token status true for a peer started with the token")
	}
}
