package relay

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type connInfo struct {
	role      string
	sessionId string
	client    *Client
}

// registry tracks every live connection and its role. It is owned by the
// RelayServer and only mutated from the run loop, so it needs no locking.
type registry struct {
	conns map[string]connInfo
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]connInfo)}
}

// register records a live connection, overwriting any previous entry for the
// same id.
func (r *registry) register(id, role, sessionId string, c *Client) {
	r.conns[id] = connInfo{role: role, sessionId: sessionId, client: c}
}

// unregister removes the entry for id. Safe to call for unknown ids.
func (r *registry) unregister(id string) {
	delete(r.conns, id)
}

func (r *registry) lookup(id string) (connInfo, bool) {
	info, ok := r.conns[id]
	return info, ok
}

func (r *registry) countByRole(role string) int {
	var n int
	for _, info := range r.conns {
		if info.role == role {
			n++
		}
	}
	return n
}
