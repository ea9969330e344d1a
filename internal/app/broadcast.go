package app

// Broadcaster is the one-way outbound side of the transport. Sends are
// fire-and-forget; the engine never waits on delivery. Declared here so the
// websocket layer can implement it without an import cycle.
type Broadcaster interface {
	// ToConnection sends to a single connection, in or out of a session.
	ToConnection(connectionID, event string, payload any)
	// ToHost sends to the session's host only.
	ToHost(code, event string, payload any)
	// ToParticipants sends to every member of the session except the host.
	ToParticipants(code, event string, payload any)
	// ToSession sends to the host and every participant.
	ToSession(code, event string, payload any)
}
