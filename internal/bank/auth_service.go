package bank

import (
	"github.com/google/uuid"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/rmi"
	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

func init() {
	rmi.RegisterExportInterface(
		reflectTypeOf(&UserServiceImpl{}),
		userServiceType,
	)
}

// AuthServiceImpl is the always-bound "auth" façade (C10). It never
// touches the Command Queue directly — Login is a read plus a session
// bind, not a write.
type AuthServiceImpl struct {
	reader   Reader
	registry *rmi.Registry
	queue    CommandSink
	peerID   int
	log      *logging.Logger
}

// NewAuthService constructs the façade. registry is where a successful
// Login binds the new session's UserService; queue is handed to every
// session so its write methods can enqueue commands.
func NewAuthService(reader Reader, registry *rmi.Registry, queue CommandSink, peerID int) *AuthServiceImpl {
	return &AuthServiceImpl{
		reader:   reader,
		registry: registry,
		queue:    queue,
		peerID:   peerID,
		log:      logging.GetDefault().Component("auth"),
	}
}

func (a *AuthServiceImpl) Login(cardNumber, pin string, callback SuccessCallback) (bool, string, string, error) {
	user, ok, failMsg := a.reader.Login(cardNumber, pin)
	if !ok {
		msg := failMsg
		if msg == "" {
			msg = MsgLoginFailed
		}
		if callback != nil {
			if err := callback.Notify(msg, "error"); err != nil {
				a.log.Warnf("notify login failure: %v", err)
			}
		}
		return false, msg, "", nil
	}

	sessionID := uuid.NewString()
	session := &UserServiceImpl{
		Object:     rmi.NewObject("UserServiceImpl"),
		reader:     a.reader,
		queue:      a.queue,
		registry:   a.registry,
		peerID:     a.peerID,
		cardNumber: cardNumber,
		user:       user,
	}
	if err := a.registry.Bind(sessionID, userServiceType, session); err != nil {
		return false, "Không thể khởi tạo phiên", "", err
	}

	if callback != nil {
		if err := callback.Notify(MsgLoginSuccess, "success"); err != nil {
			a.log.Warnf("notify login success: %v", err)
		}
	}
	return true, MsgLoginSuccess, sessionID, nil
}
