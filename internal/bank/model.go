// Package bank defines the ATM domain: accounts, transactions, the
// pending-write command envelope replicated between peers, and the RMI
// service interfaces (and their client stubs) the two peer daemons and
// the demo client talk through.
package bank

import "github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"

// User is an account holder. Created once; nothing about a User itself is
// mutated by normal operation (its cards are).
type User struct {
	ID       int64
	FullName string
}

// Card is a payment instrument bound to a User.
type Card struct {
	CardNumber string
	OwnerID    int64
	Balance    int64 // smallest currency unit, never negative
}

// TransactionType tags one row of the append-only transaction log.
type TransactionType string

const (
	TxDeposit      TransactionType = "deposit"
	TxWithdraw     TransactionType = "withdraw"
	TxTransferOut  TransactionType = "transfer-out"
	TxTransferIn   TransactionType = "transfer-in"
)

// Transaction is one append-only log entry, emitted as a side effect of a
// successful write.
type Transaction struct {
	ID        int64
	Type      TransactionType
	FromCard  string
	ToCard    string
	Amount    int64
	Timestamp int64 // milliseconds since epoch
}

// CommandKind tags the variant of an ATMCommand.
type CommandKind string

const (
	CmdChangePin CommandKind = "change-pin"
	CmdDeposit   CommandKind = "deposit"
	CmdWithdraw  CommandKind = "withdraw"
	CmdTransfer  CommandKind = "transfer"
)

// ATMCommand describes one pending write: either still sitting in a
// CommandQueue waiting for the coordinator's worker, or already executed
// locally and waiting in pendingSyncLogs for peer acknowledgement.
//
// SuccessCallback is a local-process reference and is never populated on
// a command that arrived over the peer RPC — see ATMCommandWire.
type ATMCommand struct {
	Kind      CommandKind
	PeerID    int
	CardNumber string
	Timestamp int64
	OriginSeq uint64

	NewPIN string // CmdChangePin
	Amount int64  // CmdDeposit, CmdWithdraw, CmdTransfer
	ToCard string // CmdTransfer

	SuccessCallback SuccessCallback
}

// ATMCommandWire is an ATMCommand with the local-only SuccessCallback
// field stripped, safe to serialize across the peer boundary.
type ATMCommandWire struct {
	Kind       CommandKind `json:"kind"`
	PeerID     int         `json:"peer_id"`
	CardNumber string      `json:"card_number"`
	Timestamp  int64       `json:"timestamp"`
	OriginSeq  uint64      `json:"origin_seq"`

	NewPIN string `json:"new_pin,omitempty"`
	Amount int64  `json:"amount,omitempty"`
	ToCard string `json:"to_card,omitempty"`
}

// ToWire strips the callback for peer replication.
func (c ATMCommand) ToWire() ATMCommandWire {
	return ATMCommandWire{
		Kind:       c.Kind,
		PeerID:     c.PeerID,
		CardNumber: c.CardNumber,
		Timestamp:  c.Timestamp,
		OriginSeq:  c.OriginSeq,
		NewPIN:     c.NewPIN,
		Amount:     c.Amount,
		ToCard:     c.ToCard,
	}
}

// FromWire reconstructs an ATMCommand from its wire form. The resulting
// command has a nil SuccessCallback; the executor must never invoke
// Notify on a command whose PeerID differs from the local peer, so this
// is safe regardless.
func (w ATMCommandWire) FromWire() ATMCommand {
	return ATMCommand{
		Kind:       w.Kind,
		PeerID:     w.PeerID,
		CardNumber: w.CardNumber,
		Timestamp:  w.Timestamp,
		OriginSeq:  w.OriginSeq,
		NewPIN:     w.NewPIN,
		Amount:     w.Amount,
		ToCard:     w.ToCard,
	}
}

// Session pairs an exportable identity with an authenticated User. The
// façade Login binds into the Local Registry is a *UserServiceImpl, which
// embeds rmi.Object and holds the User itself rather than embedding this.
type Session struct {
	rmi.Object
	User User
}
