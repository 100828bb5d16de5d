// Package executor implements the Command Executor (C7): applying a
// batch of bank.ATMCommand values against a bank.Writer, firing callbacks
// for locally originated commands, and rejecting already-applied
// replicated commands by OriginSeq.
package executor

import (
	"errors"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/storage"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

// Executor applies commands against a bank.Writer.
type Executor struct {
	writer  bank.Writer
	localID int
	log     *logging.Logger
}

// New returns an Executor writing through writer. localID is the local
// peer-id; only commands whose PeerID matches it fire a callback.
func New(writer bank.Writer, localID int) *Executor {
	return &Executor{writer: writer, localID: localID, log: logging.GetDefault().Component("executor")}
}

// ExecDirect applies each command in order and returns the subset that
// was actually committed (skipping duplicates and domain failures).
func (e *Executor) ExecDirect(commands []bank.ATMCommand) []bank.ATMCommand {
	executed := make([]bank.ATMCommand, 0, len(commands))
	for _, cmd := range commands {
		if e.isDuplicate(cmd) {
			e.log.Debugf("skipping duplicate replay: origin=%d seq=%d", cmd.PeerID, cmd.OriginSeq)
			continue
		}

		err := e.apply(cmd)
		switch {
		case err == nil:
			executed = append(executed, cmd)
			e.notifyLocal(cmd, bank.MsgTxSuccess, "success")
			if cmd.OriginSeq != 0 {
				if recErr := e.writer.RecordAppliedSeq(cmd.PeerID, cmd.OriginSeq); recErr != nil {
					e.log.Errorf("record applied seq: %v", recErr)
				}
			}

		default:
			var domainErr *storage.DomainError
			if errors.As(err, &domainErr) {
				e.notifyLocal(cmd, domainErr.Message, "error")
			} else {
				e.log.Errorf("command failed: %v", err)
			}
		}
	}
	return executed
}

func (e *Executor) isDuplicate(cmd bank.ATMCommand) bool {
	if cmd.OriginSeq == 0 {
		return false
	}
	lastSeq, err := e.writer.LastAppliedSeq(cmd.PeerID)
	if err != nil {
		e.log.Errorf("check last applied seq: %v", err)
		return false
	}
	return cmd.OriginSeq <= lastSeq
}

func (e *Executor) apply(cmd bank.ATMCommand) error {
	switch cmd.Kind {
	case bank.CmdChangePin:
		return e.writer.ChangePin(cmd.CardNumber, cmd.NewPIN)
	case bank.CmdDeposit:
		return e.writer.Deposit(cmd.CardNumber, cmd.Amount, cmd.Timestamp)
	case bank.CmdWithdraw:
		return e.writer.Withdraw(cmd.CardNumber, cmd.Amount, cmd.Timestamp)
	case bank.CmdTransfer:
		return e.writer.Transfer(cmd.CardNumber, cmd.ToCard, cmd.Amount, cmd.Timestamp)
	default:
		return &storage.InternalError{Cause: errUnknownCommandKind(cmd.Kind)}
	}
}

func (e *Executor) notifyLocal(cmd bank.ATMCommand, message, level string) {
	if cmd.PeerID != e.localID || cmd.SuccessCallback == nil {
		return
	}
	if err := cmd.SuccessCallback.Notify(message, level); err != nil {
		e.log.Warnf("notify callback: %v", err)
	}
}

type errUnknownCommandKind bank.CommandKind

func (k errUnknownCommandKind) Error() string {
	return "executor: unknown command kind " + string(k)
}
