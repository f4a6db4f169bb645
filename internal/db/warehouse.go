package db

import (
	"context"
	"sync"
)

// Warehouse connects to the warehouse on first use and reuses the pool afterwards.
// A failed attempt is not cached, so the next caller tries again.
type Warehouse struct {
	databaseURL string

	mu   sync.Mutex
	conn *Connection
}

// NewWarehouse returns a lazily connected warehouse handle.
func NewWarehouse(databaseURL string) *Warehouse {
	return &Warehouse{databaseURL: databaseURL}
}

// Conn returns the shared connection, dialing it if needed.
func (w *Warehouse) Conn(ctx context.Context) (*Connection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		return w.conn, nil
	}

	conn, err := NewConnection(ctx, w.databaseURL)
	if err != nil {
		return nil, err
	}
	w.conn = conn
	return conn, nil
}

// Close releases the pool if one was opened.
func (w *Warehouse) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
