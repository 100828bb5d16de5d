package executor

import (
	"testing"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/storage"
)

type fakeWriter struct {
	balances   map[string]int64
	cursors    map[int]uint64
	failNext   error
	applyCalls int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{balances: map[string]int64{}, cursors: map[int]uint64{}}
}

func (w *fakeWriter) ChangePin(cardNumber, newPIN string) error { return nil }

func (w *fakeWriter) Deposit(cardNumber string, amount int64, ts int64) error {
	w.applyCalls++
	if w.failNext != nil {
		err := w.failNext
		w.failNext = nil
		return err
	}
	w.balances[cardNumber] += amount
	return nil
}

func (w *fakeWriter) Withdraw(cardNumber string, amount int64, ts int64) error {
	w.applyCalls++
	if w.balances[cardNumber] < amount {
		return &storage.DomainError{Message: "insufficient funds"}
	}
	w.balances[cardNumber] -= amount
	return nil
}

func (w *fakeWriter) Transfer(fromCard, toCard string, amount int64, ts int64) error {
	w.applyCalls++
	if w.balances[fromCard] < amount {
		return &storage.DomainError{Message: "insufficient funds"}
	}
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

type recordingCallback struct {
	messages []string
	levels   []string
}

func (c *recordingCallback) Notify(message, level string) error {
	c.messages = append(c.messages, message)
	c.levels = append(c.levels, level)
	return nil
}

func TestExecDirectAppliesAndFiresLocalCallback(t *testing.T) {
	w := newFakeWriter()
	w.balances["111111"] = 1000
	ex := New(w, 1)
	cb := &recordingCallback{}

	executed := ex.ExecDirect([]bank.ATMCommand{{
		Kind:            bank.CmdDeposit,
		PeerID:          1,
		CardNumber:      "111111",
		Amount:          500,
		SuccessCallback: cb,
	}})

	if len(executed) != 1 {
		t.Fatalf("executed = %d, want 1", len(executed))
	}
	if w.balances["111111"] != 1500 {
		t.Fatalf("balance = %d, want 1500", w.balances["111111"])
	}
	if len(cb.messages) != 1 || cb.levels[0] != "success" {
		t.Fatalf("callback = %v/%v, want one success notification", cb.messages, cb.levels)
	}
}

func TestExecDirectSkipsCallbackForNonLocalOrigin(t *testing.T) {
	w := newFakeWriter()
	w.balances["111111"] = 1000
	ex := New(w, 1)
	cb := &recordingCallback{}

	executed := ex.ExecDirect([]bank.ATMCommand{{
		Kind:            bank.CmdDeposit,
		PeerID:          2, // replicated from the other peer
		CardNumber:      "111111",
		Amount:          500,
		SuccessCallback: cb,
	}})

	if len(executed) != 1 {
		t.Fatalf("executed = %d, want 1", len(executed))
	}
	if len(cb.messages) != 0 {
		t.Fatalf("expected no callback for non-local origin, got %v", cb.messages)
	}
}

func TestExecDirectDomainFailureNotifiesErrorAndSkipsExecuted(t *testing.T) {
	w := newFakeWriter()
	w.balances["111111"] = 100
	ex := New(w, 1)
	cb := &recordingCallback{}

	executed := ex.ExecDirect([]bank.ATMCommand{{
		Kind:            bank.CmdWithdraw,
		PeerID:          1,
		CardNumber:      "111111",
		Amount:          500,
		SuccessCallback: cb,
	}})

	if len(executed) != 0 {
		t.Fatalf("executed = %d, want 0 on domain failure", len(executed))
	}
	if len(cb.messages) != 1 || cb.levels[0] != "error" {
		t.Fatalf("callback = %v/%v, want one error notification", cb.messages, cb.levels)
	}
	if w.balances["111111"] != 100 {
		t.Fatalf("balance changed after failed withdraw: %d", w.balances["111111"])
	}
}

func TestExecDirectSkipsAlreadyAppliedReplay(t *testing.T) {
	w := newFakeWriter()
	w.balances["111111"] = 1000
	w.cursors[2] = 10
	ex := New(w, 1)

	executed := ex.ExecDirect([]bank.ATMCommand{{
		Kind:       bank.CmdDeposit,
		PeerID:     2,
		CardNumber: "111111",
		Amount:     500,
		OriginSeq:  7, // <= last applied 10: stale replay
	}})

	if len(executed) != 0 {
		t.Fatalf("executed = %d, want 0 for a replayed command", len(executed))
	}
	if w.applyCalls != 0 {
		t.Fatalf("writer was called %d times, want 0", w.applyCalls)
	}
	if w.balances["111111"] != 1000 {
		t.Fatalf("balance changed despite duplicate skip: %d", w.balances["111111"])
	}
}

func TestExecDirectRecordsSeqOnSuccess(t *testing.T) {
	w := newFakeWriter()
	w.balances["111111"] = 1000
	ex := New(w, 2)

	ex.ExecDirect([]bank.ATMCommand{{
		Kind:       bank.CmdDeposit,
		PeerID:     2,
		CardNumber: "111111",
		Amount:     100,
		OriginSeq:  11,
	}})

	seq, _ := w.LastAppliedSeq(2)
	if seq != 11 {
		t.Fatalf("last applied seq = %d, want 11", seq)
	}
}
