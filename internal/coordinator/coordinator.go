// Package coordinator implements the single-writer token-passing
// protocol (C9) that keeps the two peers' command queues from both
// applying writes at once, and the buffered replication of already-
// executed commands to the peer currently without the token.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/events"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/executor"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/monitor"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/queue"
	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

// Config holds the coordinator's tunable timeouts.
type Config struct {
	// TPoll is how long the worker waits on the queue before re-checking
	// peer demand even when idle. 0.1-2.0s is the sane range; default 1s.
	TPoll time.Duration
	// TRequest is how long a newly token-hungry worker waits for the
	// peer to honour a RequestToken call before giving up for this tick.
	// Default 5s.
	TRequest time.Duration
}

// DefaultConfig returns the spec's default tunables.
func DefaultConfig() Config {
	return Config{TPoll: time.Second, TRequest: 5 * time.Second}
}

// Coordinator is also a bank.PeerService: it is bound under the name
// "peer" on the local registry so the remote peer's PeerStub can call
// RequestToken/ReceiveSync/GetTokenStatus on it.
type Coordinator struct {
	cfg Config

	queue    *queue.CommandQueue
	executor *executor.Executor
	emitter  *events.Emitter
	peer     *bank.PeerStub
	localID  int

	mu              sync.Mutex
	hasToken        bool
	peerDemanding   bool
	pendingSyncLogs []bank.ATMCommand

	tokenEvent *tokenSignal
	originSeq  atomic.Uint64

	log *logging.Logger
	hub *monitor.WSHub
}

// SetMonitor attaches a dashboard hub; subsequent token and execution
// events are broadcast to it. Safe to call at most once before Run, and
// safe to never call at all.
func (c *Coordinator) SetMonitor(hub *monitor.WSHub) {
	c.hub = hub
}

func (c *Coordinator) broadcast(eventType monitor.EventType, data any) {
	if c.hub != nil {
		c.hub.Broadcast(eventType, data)
	}
}

// New constructs a Coordinator. startsWithToken should be true for
// exactly one of the two peers (by convention, peer 1).
func New(cfg Config, q *queue.CommandQueue, ex *executor.Executor, em *events.Emitter, peer *bank.PeerStub, localID int, startsWithToken bool) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		queue:      q,
		executor:   ex,
		emitter:    em,
		peer:       peer,
		localID:    localID,
		tokenEvent: newTokenSignal(),
		log:        logging.GetDefault().Component("coordinator"),
	}
	if startsWithToken {
		c.hasToken = true
		c.tokenEvent.Set()
	}
	return c
}

// Run is the worker loop (§4.9). It is meant to be started once, in its
// own goroutine, for the process lifetime. Shutdown latency after ctx is
// cancelled is bounded by TPoll, since a WaitForData in progress is not
// itself interruptible by ctx.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		c.queue.WaitForData(c.cfg.TPoll)

		c.mu.Lock()
		hasToken := c.hasToken
		peerDemanding := c.peerDemanding
		c.mu.Unlock()
		queueEmpty := c.queue.IsEmpty()

		if hasToken && peerDemanding && queueEmpty {
			c.syncAndPassToken()
			continue
		}

		if queueEmpty {
			continue
		}

		if !hasToken {
			if !c.requestTokenLogic() {
				continue
			}
		}

		commands := c.queue.GetAll()
		for i := range commands {
			commands[i].OriginSeq = c.nextOriginSeq()
		}
		executed := c.executor.ExecDirect(commands)
		for _, cmd := range executed {
			c.broadcast(monitor.EventCommandExecuted, cmd.ToWire())
		}

		c.mu.Lock()
		c.pendingSyncLogs = append(c.pendingSyncLogs, executed...)
		peerDemandingNow := c.peerDemanding
		pendingLen := len(c.pendingSyncLogs)
		c.mu.Unlock()

		switch {
		case peerDemandingNow:
			c.syncAndPassToken()
		case pendingLen > 0:
			c.syncDataOnly()
		}
	}
}

func (c *Coordinator) nextOriginSeq() uint64 {
	return c.originSeq.Add(1)
}

// requestTokenLogic implements the failover rule: an unreachable peer is
// presumed dead, and the token is seized unilaterally rather than lost.
func (c *Coordinator) requestTokenLogic() bool {
	_, err := c.peer.RequestTokenErr()
	if err != nil {
		if rmi.IsConnError(err) {
			c.mu.Lock()
			c.hasToken = true
			c.peerDemanding = false
			c.mu.Unlock()
			c.tokenEvent.Set()
			c.log.Warnf("peer unreachable requesting token, seizing it: %v", err)
			c.broadcast(monitor.EventTokenAcquired, c.localID)
			c.broadcast(monitor.EventPeerDisconnected, c.localID)
			return true
		}
		c.log.Errorf("request token: %v", err)
		return false
	}
	c.broadcast(monitor.EventPeerConnected, c.localID)
	return c.tokenEvent.Wait(c.cfg.TRequest)
}

func (c *Coordinator) syncAndPassToken() {
	c.sync(true)
}

func (c *Coordinator) syncDataOnly() {
	c.sync(false)
}

func (c *Coordinator) sync(passToken bool) {
	c.mu.Lock()
	logs := append([]bank.ATMCommand(nil), c.pendingSyncLogs...)
	c.mu.Unlock()

	wire := make([]bank.ATMCommandWire, len(logs))
	for i, cmd := range logs {
		wire[i] = cmd.ToWire()
	}

	ok, err := c.peer.ReceiveSyncErr(wire, passToken)
	if err != nil {
		c.mu.Lock()
		c.peerDemanding = false
		c.mu.Unlock()
		c.log.Warnf("sync (passToken=%v) failed, will retry: %v", passToken, err)
		return
	}
	if !ok {
		c.log.Warnf("peer rejected sync (passToken=%v)", passToken)
		return
	}

	c.mu.Lock()
	n := len(logs)
	if n >= len(c.pendingSyncLogs) {
		c.pendingSyncLogs = nil
	} else {
		c.pendingSyncLogs = c.pendingSyncLogs[n:]
	}
	if passToken {
		c.hasToken = false
		c.peerDemanding = false
	}
	c.mu.Unlock()

	if passToken {
		c.tokenEvent.Clear()
		c.broadcast(monitor.EventTokenPassed, c.localID)
	}
}

// --- bank.PeerService, bound locally under "peer" ---

func (c *Coordinator) RequestToken() bool {
	c.mu.Lock()
	c.peerDemanding = true
	c.mu.Unlock()
	return true
}

func (c *Coordinator) ReceiveSync(logs []bank.ATMCommandWire, passToken bool) bool {
	commands := make([]bank.ATMCommand, len(logs))
	for i, w := range logs {
		commands[i] = w.FromWire()
	}
	c.emitter.Emit(func() {
		c.executor.ExecDirect(commands)
	})

	if passToken {
		c.mu.Lock()
		c.hasToken = true
		c.peerDemanding = false
		c.mu.Unlock()
		c.tokenEvent.Set()
		c.broadcast(monitor.EventTokenAcquired, c.localID)
	}
	return true
}

func (c *Coordinator) GetTokenStatus() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasToken
}
