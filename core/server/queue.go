package server

import (
	"net"
	"sync"
)

// connQueue feeds negotiated HTTP/1.1 connections into the internal
// http.Server through the net.Listener interface, so the standard stack
// drives keep-alive, framing and in-order responses while the accept loop
// retains ownership of binding and negotiation.
type connQueue struct {
	addr   net.Addr
	conns  chan net.Conn
	once   sync.Once
	closed chan struct{}
}

func newConnQueue(addr net.Addr) *connQueue {
	return &connQueue{
		addr:   addr,
		conns:  make(chan net.Conn, 128),
		closed: make(chan struct{}),
	}
}

// enqueue hands a connection to the HTTP/1.1 stack. Returns false when the
// queue is already closed; the caller still owns the connection then.
func (q *connQueue) enqueue(conn net.Conn) bool {
	select {
	case <-q.closed:
		return false
	case q.conns <- conn:
		return true
	}
}

func (q *connQueue) Accept() (net.Conn, error) {
	select {
	case <-q.closed:
		return nil, net.ErrClosed
	case conn := <-q.conns:
		return conn, nil
	}
}

// Close shuts the queue and closes any connections still buffered, so no
// accepted socket leaks when shutdown races an enqueue.
func (q *connQueue) Close() error {
	q.once.Do(func() {
		close(q.closed)
		for {
			select {
			case conn := <-q.conns:
				conn.Close()
			default:
				return
			}
		}
	})
	return nil
}

func (q *connQueue) Addr() net.Addr {
	return q.addr
}
