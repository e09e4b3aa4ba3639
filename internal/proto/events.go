// Package proto defines the wire format of server-pushed socket events.
package proto

// Event names pushed over the socket channel.
const (
	EventMessage = "message"
	EventChat    = "chat"
)

// Outbound is the envelope for events sent to connected clients.
// The channel is server-push only; clients talk to the server over REST.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
