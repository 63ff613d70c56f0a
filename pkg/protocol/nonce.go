package protocol

import "sync"

// nonceTracker remembers the next nonce this process intends to use so that
// consecutive submissions within a cycle do not collide while the node's
// view still lags behind.
type nonceTracker struct {
	mu    sync.Mutex
	next  uint64
	known bool
}

// reserve returns max(chainNext, local next) and advances the local view.
func (n *nonceTracker) reserve(chainNext uint64) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.known || chainNext > n.next {
		n.next = chainNext
	}

	nonce := n.next
	n.next++
	n.known = true

	return nonce
}

// reset forgets the local view; the next reservation follows the chain.
func (n *nonceTracker) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.known = false
	n.next = 0
}
