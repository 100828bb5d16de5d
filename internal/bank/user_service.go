package bank

import (
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
)

// UserServiceImpl is the per-session façade (C10) bound into the Local
// Registry under a freshly generated session-id by AuthServiceImpl.Login.
// Reads go straight through to the Reader; writes are enqueued as
// ATMCommand values and answered asynchronously via the caller's
// callback once the Coordinator's worker has executed them.
type UserServiceImpl struct {
	rmi.Object
	reader     Reader
	queue      CommandSink
	registry   *rmi.Registry
	peerID     int
	cardNumber string
	user       User
}

func (u *UserServiceImpl) GetBalance() (int64, error) {
	return u.reader.GetBalance(u.cardNumber)
}

func (u *UserServiceImpl) GetInfo() (User, error) {
	return u.reader.GetInfo(u.cardNumber)
}

func (u *UserServiceImpl) GetTransactionHistory() ([]Transaction, error) {
	return u.reader.GetTransactionHistory(u.cardNumber)
}

func (u *UserServiceImpl) Deposit(amount int64, callback SuccessCallback) error {
	u.queue.Add(ATMCommand{
		Kind:            CmdDeposit,
		PeerID:          u.peerID,
		CardNumber:      u.cardNumber,
		Timestamp:       nowMillis(),
		Amount:          amount,
		SuccessCallback: callback,
	})
	return nil
}

func (u *UserServiceImpl) Withdraw(amount int64, callback SuccessCallback) error {
	u.queue.Add(ATMCommand{
		Kind:            CmdWithdraw,
		PeerID:          u.peerID,
		CardNumber:      u.cardNumber,
		Timestamp:       nowMillis(),
		Amount:          amount,
		SuccessCallback: callback,
	})
	return nil
}

func (u *UserServiceImpl) Transfer(toCard string, amount int64, callback SuccessCallback) error {
	u.queue.Add(ATMCommand{
		Kind:            CmdTransfer,
		PeerID:          u.peerID,
		CardNumber:      u.cardNumber,
		Timestamp:       nowMillis(),
		ToCard:          toCard,
		Amount:          amount,
		SuccessCallback: callback,
	})
	return nil
}

func (u *UserServiceImpl) ChangePin(newPIN string, callback SuccessCallback) error {
	u.queue.Add(ATMCommand{
		Kind:            CmdChangePin,
		PeerID:          u.peerID,
		CardNumber:      u.cardNumber,
		Timestamp:       nowMillis(),
		NewPIN:          newPIN,
		SuccessCallback: callback,
	})
	return nil
}

func (u *UserServiceImpl) Logout(callback SuccessCallback) error {
	if name := u.ExportedName(); name != "" {
		if err := u.registry.Unbind(name); err != nil {
			return err
		}
	}
	if callback != nil {
		return callback.Notify(MsgLogoutSuccess, "success")
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
