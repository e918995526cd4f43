package memory

import (
	"sync"

	"camptrade/internal/app/model"
)

// DB holds every in-process collection behind one lock so that multi-record writes are atomic.
type DB struct {
	mu           sync.RWMutex
	transactions map[string]model.Transaction
	settlements  map[string]model.Settlement
	balances     map[string]int64
	awards       map[awardKey]int64
}

type awardKey struct {
	transactionID string
	userID        string
}

func NewDB() *DB {
	return &DB{
		transactions: make(map[string]model.Transaction),
		settlements:  make(map[string]model.Settlement),
		balances:     make(map[string]int64),
		awards:       make(map[awardKey]int64),
	}
}
