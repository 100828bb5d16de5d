// Package storage provides persistent storage for one peer's ATM
// database using SQLite, and is the concrete implementation of
// bank.Reader and bank.Writer.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mtdung290504/distributed-banking-system-simulation/internal/bank"
)

// DomainError is a business-rule violation: insufficient funds,
// self-transfer, an unchanged PIN on ChangePin, or an unknown card. The
// executor delivers these to the originating client via the command's
// SuccessCallback and never replicates the failed command.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// Kind implements rmi.Kinder so a DomainError that happens to cross an
// RMI boundary keeps its name instead of flattening to "InternalError".
func (e *DomainError) Kind() string { return "DomainError" }

// InternalError wraps a driver or I/O failure distinct from any business
// rule: anything that isn't a deliberate rejection of the request.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal storage error: %v", e.Cause) }
func (e *InternalError) Kind() string  { return "InternalError" }
func (e *InternalError) Unwrap() error { return e.Cause }

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// Storage is one peer's SQLite-backed account database.
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes the Go-level business-rule-then-write sequence
}

// New opens (creating if necessary) the database under cfg.DataDir and
// ensures its schema exists.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "atmpeer.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite has exactly one writer; a single pooled connection makes
	// that explicit instead of relying on WAL to paper over contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, dbPath: dbPath}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection, for tooling that needs
// direct access (seeding test fixtures, inspecting state).
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cards (
		card_number TEXT PRIMARY KEY,
		owner_id    INTEGER NOT NULL,
		pin_hash    TEXT NOT NULL,
		balance     INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (owner_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		type       TEXT NOT NULL,
		from_card  TEXT,
		to_card    TEXT,
		amount     INTEGER NOT NULL,
		timestamp  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_card);
	CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_card);

	-- Idempotent-replication cursor: the highest OriginSeq already
	-- committed for each origin peer, so a resent ReceiveSync batch is a
	-- no-op on its already-applied prefix.
	CREATE TABLE IF NOT EXISTS replication_cursors (
		origin_peer_id   INTEGER PRIMARY KEY,
		last_applied_seq INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// --- bank.Reader ---

// Login verifies cardNumber/pin. The bool and message results mirror the
// original stored-procedure contract (a success flag and a localized
// message) rather than a Go error, because "wrong PIN" is an expected
// outcome of Login, not a failure of the storage layer itself.
func (s *Storage) Login(cardNumber, pin string) (bank.User, bool, string) {
	var ownerID int64
	var fullName, pinHash string
	row := s.db.QueryRow(`
		SELECT u.id, u.full_name, c.pin_hash
		FROM cards c JOIN users u ON u.id = c.owner_id
		WHERE c.card_number = ?`, cardNumber)
	if err := row.Scan(&ownerID, &fullName, &pinHash); err != nil {
		return bank.User{}, false, bank.MsgLoginFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)) != nil {
		return bank.User{}, false, bank.MsgLoginFailed
	}
	return bank.User{ID: ownerID, FullName: fullName}, true, ""
}

func (s *Storage) GetBalance(cardNumber string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM cards WHERE card_number = ?`, cardNumber).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, &DomainError{Message: "Không tìm thấy thẻ"}
	}
	if err != nil {
		return 0, &InternalError{Cause: err}
	}
	return balance, nil
}

func (s *Storage) GetInfo(cardNumber string) (bank.User, error) {
	var ownerID int64
	var fullName string
	row := s.db.QueryRow(`
		SELECT u.id, u.full_name
		FROM cards c JOIN users u ON u.id = c.owner_id
		WHERE c.card_number = ?`, cardNumber)
	if err := row.Scan(&ownerID, &fullName); err == sql.ErrNoRows {
		return bank.User{}, &DomainError{Message: "Không tìm thấy thẻ"}
	} else if err != nil {
		return bank.User{}, &InternalError{Cause: err}
	}
	return bank.User{ID: ownerID, FullName: fullName}, nil
}

func (s *Storage) GetTransactionHistory(cardNumber string) ([]bank.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, type, from_card, to_card, amount, timestamp
		FROM transactions
		WHERE from_card = ? OR to_card = ?
		ORDER BY timestamp DESC`, cardNumber, cardNumber)
	if err != nil {
		return nil, &InternalError{Cause: err}
	}
	defer rows.Close()

	var txs []bank.Transaction
	for rows.Next() {
		var tx bank.Transaction
		var fromCard, toCard sql.NullString
		if err := rows.Scan(&tx.ID, &tx.Type, &fromCard, &toCard, &tx.Amount, &tx.Timestamp); err != nil {
			return nil, &InternalError{Cause: err}
		}
		tx.FromCard = fromCard.String
		tx.ToCard = toCard.String
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &InternalError{Cause: err}
	}
	return txs, nil
}

// --- bank.Writer ---

func (s *Storage) ChangePin(cardNumber, newPIN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var currentHash string
	err := s.db.QueryRow(`SELECT pin_hash FROM cards WHERE card_number = ?`, cardNumber).Scan(&currentHash)
	if err == sql.ErrNoRows {
		return &DomainError{Message: "Không tìm thấy thẻ"}
	}
	if err != nil {
		return &InternalError{Cause: err}
	}
	if bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(newPIN)) == nil {
		return &DomainError{Message: "PIN mới phải khác PIN hiện tại"}
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return &InternalError{Cause: err}
	}
	if _, err := s.db.Exec(`UPDATE cards SET pin_hash = ? WHERE card_number = ?`, string(newHash), cardNumber); err != nil {
		return &InternalError{Cause: err}
	}
	return nil
}

func (s *Storage) Deposit(cardNumber string, amount int64, ts int64) error {
	if amount <= 0 {
		return &DomainError{Message: "Số tiền phải lớn hơn 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &InternalError{Cause: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE cards SET balance = balance + ? WHERE card_number = ?`, amount, cardNumber)
	if err != nil {
		return &InternalError{Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &DomainError{Message: "Không tìm thấy thẻ"}
	}
	if _, err := tx.Exec(`INSERT INTO transactions (type, from_card, to_card, amount, timestamp) VALUES (?, NULL, ?, ?, ?)`,
		bank.TxDeposit, cardNumber, amount, ts); err != nil {
		return &InternalError{Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return &InternalError{Cause: err}
	}
	return nil
}

func (s *Storage) Withdraw(cardNumber string, amount int64, ts int64) error {
	if amount <= 0 {
		return &DomainError{Message: "Số tiền phải lớn hơn 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &InternalError{Cause: err}
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRow(`SELECT balance FROM cards WHERE card_number = ?`, cardNumber).Scan(&balance)
	if err == sql.ErrNoRows {
		return &DomainError{Message: "Không tìm thấy thẻ"}
	}
	if err != nil {
		return &InternalError{Cause: err}
	}
	if balance < amount {
		return &DomainError{Message: "Số dư không đủ"}
	}

	if _, err := tx.Exec(`UPDATE cards SET balance = balance - ? WHERE card_number = ?`, amount, cardNumber); err != nil {
		return &InternalError{Cause: err}
	}
	if _, err := tx.Exec(`INSERT INTO transactions (type, from_card, to_card, amount, timestamp) VALUES (?, ?, NULL, ?, ?)`,
		bank.TxWithdraw, cardNumber, amount, ts); err != nil {
		return &InternalError{Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return &InternalError{Cause: err}
	}
	return nil
}

func (s *Storage) Transfer(fromCard, toCard string, amount int64, ts int64) error {
	if amount <= 0 {
		return &DomainError{Message: "Số tiền phải lớn hơn 0"}
	}
	if fromCard == toCard {
		return &DomainError{Message: "Không thể chuyển khoản cho chính mình"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &InternalError{Cause: err}
	}
	defer tx.Rollback()

	var fromBalance int64
	err = tx.QueryRow(`SELECT balance FROM cards WHERE card_number = ?`, fromCard).Scan(&fromBalance)
	if err == sql.ErrNoRows {
		return &DomainError{Message: "Không tìm thấy thẻ nguồn"}
	}
	if err != nil {
		return &InternalError{Cause: err}
	}
	if fromBalance < amount {
		return &DomainError{Message: "Số dư không đủ"}
	}

	res, err := tx.Exec(`UPDATE cards SET balance = balance + ? WHERE card_number = ?`, amount, toCard)
	if err != nil {
		return &InternalError{Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &DomainError{Message: "Không tìm thấy thẻ đích"}
	}
	if _, err := tx.Exec(`UPDATE cards SET balance = balance - ? WHERE card_number = ?`, amount, fromCard); err != nil {
		return &InternalError{Cause: err}
	}
	if _, err := tx.Exec(`INSERT INTO transactions (type, from_card, to_card, amount, timestamp) VALUES (?, ?, ?, ?, ?)`,
		bank.TxTransferOut, fromCard, toCard, amount, ts); err != nil {
		return &InternalError{Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return &InternalError{Cause: err}
	}
	return nil
}

func (s *Storage) LastAppliedSeq(originPeerID int) (uint64, error) {
	var seq uint64
	err := s.db.QueryRow(`SELECT last_applied_seq FROM replication_cursors WHERE origin_peer_id = ?`, originPeerID).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &InternalError{Cause: err}
	}
	return seq, nil
}

func (s *Storage) RecordAppliedSeq(originPeerID int, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO replication_cursors (origin_peer_id, last_applied_seq) VALUES (?, ?)
		ON CONFLICT (origin_peer_id) DO UPDATE SET last_applied_seq = excluded.last_applied_seq
		WHERE excluded.last_applied_seq > replication_cursors.last_applied_seq`,
		originPeerID, seq)
	if err != nil {
		return &InternalError{Cause: err}
	}
	return nil
}

// --- provisioning (not the excluded administrative CLI: a programmatic
// seeding surface, called by this package's tests; cmd/atmpeerd does not
// call it) ---

// RegisterUser inserts a new account holder and returns its id.
func (s *Storage) RegisterUser(fullName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`INSERT INTO users (full_name) VALUES (?)`, fullName)
	if err != nil {
		return 0, &InternalError{Cause: err}
	}
	return res.LastInsertId()
}

// RegisterCard creates a new card for ownerID with the given PIN (hashed
// at rest) and initial balance.
func (s *Storage) RegisterCard(cardNumber, pin string, ownerID int64, initialBalance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return &InternalError{Cause: err}
	}
	_, err = s.db.Exec(`INSERT INTO cards (card_number, owner_id, pin_hash, balance) VALUES (?, ?, ?, ?)`,
		cardNumber, ownerID, string(hash), initialBalance)
	if err != nil {
		return &DomainError{Message: "Số thẻ đã tồn tại"}
	}
	return nil
}
