// Package main provides atmclient, an interactive demo client that
// exercises the RMI-based AuthService/UserService surface: it logs in,
// drives deposit/withdraw/transfer/balance/history/change-pin/logout,
// and receives the resulting success/failure notification asynchronously
// through its own auto-exported callback object.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/helpers"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

// amountDecimals is how many of an account's smallest-unit digits are
// fractional when printed or parsed at the CLI (amounts are stored and
// replicated as plain minor-unit int64s; this is purely a display/input
// convenience for the person typing at this terminal).
const amountDecimals = 2

// Registering the concrete-to-interface mapping is what lets the server
// call back Notify across the wire with the right method set — without
// it, auto-export would bind this callback under the bare rmi.Exportable
// interface, which declares no domain methods at all.
func init() {
	rmi.RegisterExportInterface(
		reflect.TypeOf(&notifyCallback{}),
		reflect.TypeOf((*bank.SuccessCallback)(nil)).Elem(),
	)
}

// notifyCallback is bound and handed out by auto-export whenever it is
// passed as a SuccessCallback argument; its Notify method is invoked by
// the peer once the queued command has actually been applied.
type notifyCallback struct {
	rmi.Object
	result chan string
}

func newNotifyCallback() *notifyCallback {
	return &notifyCallback{Object: rmi.NewObject("ClientCallback"), result: make(chan string, 1)}
}

func (c *notifyCallback) Notify(message, level string) error {
	c.result <- fmt.Sprintf("[%s] %s", level, message)
	return nil
}

func (c *notifyCallback) await(timeout time.Duration) string {
	select {
	case msg := <-c.result:
		return msg
	case <-time.After(timeout):
		return "[timeout] no response from peer"
	}
}

func main() {
	var (
		peerHost   = flag.String("peer-host", "127.0.0.1", "Peer host to connect to")
		peerPort   = flag.Int("peer-port", 9101, "Peer port to connect to")
		listenHost = flag.String("listen-host", "127.0.0.1", "Local address to advertise for callbacks")
		listenPort = flag.Int("listen-port", 0, "Local port to listen on for callbacks (0 = ephemeral)")
	)
	flag.Parse()

	log := logging.New(logging.DefaultConfig())
	logging.SetDefault(log)

	reg := rmi.NewRegistry(*listenHost, *listenPort)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.Serve(ctx)
	<-reg.Ready()

	client := rmi.NewClient(*peerHost, *peerPort)
	defer client.Close()
	auth := bank.NewAuthStub(client, reg)

	fmt.Println("atmclient — connected to", fmt.Sprintf("%s:%d", *peerHost, *peerPort))

	reader := bufio.NewReader(os.Stdin)
	session := login(reader, auth, client, reg)
	if session == nil {
		return
	}
	runSession(reader, session)
}

func login(reader *bufio.Reader, auth *bank.AuthStub, client *rmi.Client, reg *rmi.Registry) *bank.UserStub {
	fmt.Print("card number: ")
	cardNumber := readLine(reader)
	fmt.Print("pin: ")
	pin := readLine(reader)

	cb := newNotifyCallback()
	success, message, sessionID, err := auth.Login(cardNumber, pin, cb)
	if err != nil {
		fmt.Println("login failed:", err)
		return nil
	}
	fmt.Println(cb.await(5 * time.Second))
	if !success {
		fmt.Println(message)
		return nil
	}
	return bank.NewUserStub(sessionID, client, reg)
}

func runSession(reader *bufio.Reader, user *bank.UserStub) {
	for {
		fmt.Print("\n[balance|info|history|deposit|withdraw|transfer|changepin|logout] > ")
		switch strings.TrimSpace(readLine(reader)) {
		case "balance":
			balance, err := user.GetBalance()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("balance: %s\n", helpers.FormatAmount(uint64(balance), amountDecimals))

		case "info":
			info, err := user.GetInfo()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("account holder: %s (id %d)\n", info.FullName, info.ID)

		case "history":
			txs, err := user.GetTransactionHistory()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, tx := range txs {
				fmt.Printf("%s  %-14s from=%s to=%s amount=%s\n",
					time.UnixMilli(tx.Timestamp).Format(time.RFC3339), tx.Type, tx.FromCard, tx.ToCard,
					helpers.FormatAmount(uint64(tx.Amount), amountDecimals))
			}

		case "deposit":
			amount := readAmount(reader)
			cb := newNotifyCallback()
			if err := user.Deposit(amount, cb); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(cb.await(5 * time.Second))

		case "withdraw":
			amount := readAmount(reader)
			cb := newNotifyCallback()
			if err := user.Withdraw(amount, cb); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(cb.await(5 * time.Second))

		case "transfer":
			fmt.Print("to card: ")
			toCard := readLine(reader)
			amount := readAmount(reader)
			cb := newNotifyCallback()
			if err := user.Transfer(toCard, amount, cb); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(cb.await(5 * time.Second))

		case "changepin":
			fmt.Print("new pin: ")
			newPIN := readLine(reader)
			cb := newNotifyCallback()
			if err := user.ChangePin(newPIN, cb); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(cb.await(5 * time.Second))

		case "logout":
			cb := newNotifyCallback()
			if err := user.Logout(cb); err != nil {
				fmt.Println("error:", err)
				return
			}
			fmt.Println(cb.await(5 * time.Second))
			return

		default:
			fmt.Println("unknown command")
		}
	}
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func readAmount(reader *bufio.Reader) int64 {
	fmt.Print("amount (e.g. 15.50): ")
	amount, err := helpers.ParseAmount(readLine(reader), amountDecimals)
	if err != nil {
		fmt.Println("invalid amount:", err)
		return 0
	}
	return int64(amount)
}
