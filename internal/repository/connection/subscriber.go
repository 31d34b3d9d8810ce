package connection

// Subscriber receives the encoded room events it is subscribed to.
type Subscriber interface {
	Id() string
	// Send must not block. It reports false when the message was dropped.
	Send(msg []byte) bool
}
