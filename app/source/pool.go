package source

import (
	"fmt"
	"sync/atomic"
)

// Pool rotates round-robin over a fixed set of authenticated source
// identities. Rotation is blind: every Next call advances, regardless of
// whether the previous call succeeded, to spread load evenly.
type Pool struct {
	clients []Client
	next    atomic.Uint64
}

// NewPool creates a rotation pool. At least one client is required.
func NewPool(clients []Client) (*Pool, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("no source clients provided")
	}
	return &Pool{clients: clients}, nil
}

// Next returns the next client in the rotation.
func (p *Pool) Next() Client {
	n := p.next.Add(1) - 1
	return p.clients[n%uint64(len(p.clients))]
}

// Size returns the number of identities in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}
