package queue

import (
	"testing"
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
)

func TestAddThenGetAllDrainsFIFO(t *testing.T) {
	q := New()
	q.Add(bank.ATMCommand{CardNumber: "1"})
	q.Add(bank.ATMCommand{CardNumber: "2"})
	q.Add(bank.ATMCommand{CardNumber: "3"})

	got := q.GetAll()
	if len(got) != 3 {
		t.Fatalf("got %d commands, want 3", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].CardNumber != want {
			t.Fatalf("got[%d].CardNumber = %q, want %q", i, got[i].CardNumber, want)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("queue should be empty after GetAll")
	}
}

func TestGetAllOnEmptyQueueReturnsNil(t *testing.T) {
	q := New()
	if got := q.GetAll(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestWaitForDataReturnsImmediatelyWhenNonEmpty(t *testing.T) {
	q := New()
	q.Add(bank.ATMCommand{CardNumber: "1"})

	start := time.Now()
	if !q.WaitForData(time.Second) {
		t.Fatal("expected true")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("WaitForData took %v, expected near-instant return", elapsed)
	}
}

func TestWaitForDataTimesOutWhenEmpty(t *testing.T) {
	q := New()
	start := time.Now()
	if q.WaitForData(50 * time.Millisecond) {
		t.Fatal("expected false on timeout")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestWaitForDataWakesOnAdd(t *testing.T) {
	q := New()
	done := make(chan bool, 1)
	go func() {
		done <- q.WaitForData(2 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Add(bank.ATMCommand{CardNumber: "1"})

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected WaitForData to observe data")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForData did not wake on Add")
	}
}
