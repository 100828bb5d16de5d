package storage

import (
	"errors"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(&Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCard(t *testing.T, s *Storage, cardNumber, pin string, balance int64) int64 {
	t.Helper()
	ownerID, err := s.RegisterUser("Test User")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if err := s.RegisterCard(cardNumber, pin, ownerID, balance); err != nil {
		t.Fatalf("RegisterCard: %v", err)
	}
	return ownerID
}

func TestLoginSuccessAndFailure(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 1000)

	if _, ok, _ := s.Login("111111", "1234"); !ok {
		t.Fatal("expected login success with correct PIN")
	}
	if _, ok, msg := s.Login("111111", "0000"); ok || msg == "" {
		t.Fatal("expected login failure with wrong PIN")
	}
	if _, ok, _ := s.Login("999999", "1234"); ok {
		t.Fatal("expected login failure for unknown card")
	}
}

func TestDepositIncreasesBalance(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 1000)

	if err := s.Deposit("111111", 500, 1); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	balance, err := s.GetBalance("111111")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("balance = %d, want 1500", balance)
	}
}

func TestWithdrawInsufficientFundsIsDomainError(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 100)

	err := s.Withdraw("111111", 500, 1)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *DomainError, got %v (%T)", err, err)
	}

	balance, _ := s.GetBalance("111111")
	if balance != 100 {
		t.Fatalf("balance changed after failed withdraw: %d", balance)
	}
}

func TestTransferMovesBalanceBetweenCards(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 1000)
	seedCard(t, s, "222222", "5678", 200)

	if err := s.Transfer("111111", "222222", 300, 1); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	from, _ := s.GetBalance("111111")
	to, _ := s.GetBalance("222222")
	if from != 700 {
		t.Fatalf("from balance = %d, want 700", from)
	}
	if to != 500 {
		t.Fatalf("to balance = %d, want 500", to)
	}
}

func TestTransferToSelfIsDomainError(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 1000)

	err := s.Transfer("111111", "111111", 100, 1)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *DomainError for self-transfer, got %v", err)
	}
}

func TestChangePinRejectsSameValue(t *testing.T) {
	s := newTestStorage(t)
	seedCard(t, s, "111111", "1234", 1000)

	err := s.ChangePin("111111", "1234")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *DomainError for unchanged PIN, got %v", err)
	}

	if err := s.ChangePin("111111", "4321"); err != nil {
		t.Fatalf("ChangePin with a new value: %v", err)
	}
	if _, ok, _ := s.Login("111111", "4321"); !ok {
		t.Fatal("expected login to succeed with the newly set PIN")
	}
}

func TestReplicationCursorTracksHighWaterMark(t *testing.T) {
	s := newTestStorage(t)

	seq, err := s.LastAppliedSeq(1)
	if err != nil {
		t.Fatalf("LastAppliedSeq: %v", err)
	}
	if seq != 0 {
		t.Fatalf("initial cursor = %d, want 0", seq)
	}

	if err := s.RecordAppliedSeq(1, 5); err != nil {
		t.Fatalf("RecordAppliedSeq: %v", err)
	}
	seq, _ = s.LastAppliedSeq(1)
	if seq != 5 {
		t.Fatalf("cursor = %d, want 5", seq)
	}

	// A stale, smaller seq must not move the cursor backwards.
	if err := s.RecordAppliedSeq(1, 3); err != nil {
		t.Fatalf("RecordAppliedSeq: %v", err)
	}
	seq, _ = s.LastAppliedSeq(1)
	if seq != 5 {
		t.Fatalf("cursor regressed to %d, want 5", seq)
	}
}
