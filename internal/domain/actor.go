package domain

// ActorRole identifies who is performing an operation.
type ActorRole string

const (
	RoleRider      ActorRole = "RIDER"
	RoleDriver     ActorRole = "DRIVER"
	RoleDispatcher ActorRole = "DISPATCHER"
	RoleAdmin      ActorRole = "ADMIN"
)

// Actor is the authenticated principal behind a request.
type Actor struct {
	ID   string
	Role ActorRole
}

// CanOverride reports whether the actor carries the privileged capability
// that widens the set of allowed state transitions.
func (a Actor) CanOverride() bool {
	return a.Role == RoleAdmin
}
