package server

import (
	"context"
	"net"
	"sync"
	"time"
)

// ConnectionHandle is the per-accepted-connection record tracked by the live
// connection set. It is created at accept time, before the connection task
// starts serving, and removed only when the underlying socket has fully
// closed.
type ConnectionHandle struct {
	id        uint64
	peer      net.Addr
	startedAt time.Time
	conn      *trackedConn

	mu    sync.Mutex
	proto Protocol
}

// ID returns the monotonically increasing connection identifier.
func (h *ConnectionHandle) ID() uint64 { return h.id }

// Peer returns the remote address of the connection.
func (h *ConnectionHandle) Peer() net.Addr { return h.peer }

// StartedAt returns the accept timestamp.
func (h *ConnectionHandle) StartedAt() time.Time { return h.startedAt }

// Protocol returns the negotiated protocol, or ProtocolUnknown while the
// connection is still negotiating.
func (h *ConnectionHandle) Protocol() Protocol {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.proto
}

func (h *ConnectionHandle) setProtocol(p Protocol) {
	h.mu.Lock()
	h.proto = p
	h.mu.Unlock()
}

// abort force-closes the underlying socket. Used only after the drain
// timeout; in-flight responses on the connection are lost, not failed.
func (h *ConnectionHandle) abort() {
	_ = h.conn.Close()
}

// trackedConn ties the socket lifetime to registry membership: whichever
// protocol stack closes the connection, the handle is deregistered exactly
// once, with no lingering sockets behind it.
type trackedConn struct {
	net.Conn
	once    sync.Once
	onClose func()
}

func (c *trackedConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Conn.Close()
		c.onClose()
	})
	return err
}

// registry is the live connection set. The accept loop inserts, connection
// teardown removes, and the shutdown coordinator reads counts and iterates a
// consistent snapshot. New inserts cannot race a shutdown broadcast because
// the listener is closed before the broadcast begins.
type registry struct {
	mu     sync.Mutex
	nextID uint64
	conns  map[uint64]*ConnectionHandle
}

func newRegistry() *registry {
	return &registry{conns: make(map[uint64]*ConnectionHandle)}
}

// add registers a new connection and returns its handle. The returned
// handle's conn must be used in place of the raw connection so closing it
// deregisters the entry.
func (r *registry) add(conn net.Conn) *ConnectionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	h := &ConnectionHandle{
		id:        r.nextID,
		peer:      conn.RemoteAddr(),
		startedAt: time.Now(),
	}
	h.conn = &trackedConn{
		Conn:    conn,
		onClose: func() { r.remove(h.id) },
	}
	r.conns[h.id] = h
	return h
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *registry) snapshot() []*ConnectionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*ConnectionHandle, 0, len(r.conns))
	for _, h := range r.conns {
		handles = append(handles, h)
	}
	return handles
}

// abortAll force-closes every live connection and returns how many were
// aborted.
func (r *registry) abortAll() int {
	handles := r.snapshot()
	for _, h := range handles {
		h.abort()
	}
	return len(handles)
}

// drain waits until the set is empty or ctx expires. Returns true when the
// set emptied in time.
func (r *registry) drain(ctx context.Context) bool {
	if r.len() == 0 {
		return true
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.len() == 0
		case <-ticker.C:
			if r.len() == 0 {
				return true
			}
		}
	}
}
