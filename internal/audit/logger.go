package audit

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// Logger writes one JSON line per ledger or setup event.
type Logger struct {
	out *logrus.Logger
}

func NewLogger(out *logrus.Logger) *Logger {
	if out == nil {
		out = logrus.StandardLogger()
	}
	return &Logger{out: out}
}

func (a *Logger) LogAccountOpened(transactionID, userID string, amount int64) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ACCOUNT_OPENED",
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

func (a *Logger) LogDebit(transactionID, userID string, amount, remaining int64) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "DEBIT",
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       map[string]int64{"remaining_credits": remaining},
	})
}

func (a *Logger) LogRejected(userID string, amount int64, reason error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "DEBIT",
		UserID:    userID,
		Amount:    amount,
		Status:    "REJECTED",
		Details:   map[string]string{"reason": reason.Error()},
	})
}

func (a *Logger) LogError(operation, userID string, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"operation": operation, "error": err.Error()},
	})
}

func (a *Logger) LogSetup(operation, status, details string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "SETUP",
		Status:    status,
		Details:   map[string]string{"operation": operation, "details": details},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
