package db

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	txIDPrefix   = "tx-"
	bgIDPrefix   = "bg-"
	billIDPrefix = "bl-"
	debtIDPrefix = "dt-"
	subIDPrefix  = "sb-"
	goalIDPrefix = "gl-"
	connIDPrefix = "cn-"
)

// NormalizeID ensures an entity ID carries the given prefix.
// Accepts bare hex IDs like "a1b2c3" and returns e.g. "tx-a1b2c3".
func NormalizeID(id, prefix string) string {
	if id == "" {
		return id
	}
	if !strings.HasPrefix(id, prefix) {
		return prefix + id
	}
	return id
}

// newID generates a prefixed random ID with n random bytes (2n hex chars).
// 3 bytes gives a 16.7M keyspace, enough for a personal ledger; callers
// retry on the rare collision.
func newID(prefix string, n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(bytes), nil
}

func generateTransactionID() (string, error) { return newID(txIDPrefix, 3) }

func generateBudgetID() (string, error) { return newID(bgIDPrefix, 2) }

func generateBillID() (string, error) { return newID(billIDPrefix, 2) }

func generateDebtID() (string, error) { return newID(debtIDPrefix, 2) }

func generateSubscriptionID() (string, error) { return newID(subIDPrefix, 2) }

func generateGoalID() (string, error) { return newID(goalIDPrefix, 2) }

func generateConnectionID() (string, error) { return newID(connIDPrefix, 3) }
