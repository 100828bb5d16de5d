package bank

// User-facing notification text, kept in one place since both the auth
// and user façades fire the same handful of messages.
const (
	MsgLoginSuccess    = "Đăng nhập thành công"
	MsgLoginFailed     = "Sai số thẻ hoặc mã PIN"
	MsgTxSuccess       = "Giao dịch thành công"
	MsgLogoutSuccess   = "Đã logout"
)
