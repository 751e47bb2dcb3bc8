package remote

// ConnectionReason tells why a ConnectionChange fired.
type ConnectionReason int

// Connection change reasons.
const (
	Connected ConnectionReason = iota + 1
	Disconnected
)

// String returns "connected" or "disconnected".
func (r ConnectionReason) String() string {
	switch r {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectionChange is broadcast on a Bus when a rich
// provider connects or disconnects.
type ConnectionChange struct {
	Reason ConnectionReason
	// Key is the Identity.Key of the provider.
	Key string
}

// Bus broadcasts connection changes between rich provider
// instances that share an identity key.
type Bus struct {
	events Emitter[ConnectionChange]
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// DefaultBus is the process-wide bus used by rich
// providers built without an explicit one. It lives for
// the whole process.
var DefaultBus = NewBus()

// Subscribe registers fn for every change and returns a
// function removing it.
func (b *Bus) Subscribe(fn func(ConnectionChange)) func() {
	return b.events.Subscribe(fn)
}

// Connected broadcasts a connect for key.
func (b *Bus) Connected(key string) {
	b.events.Fire(ConnectionChange{Reason: Connected, Key: key})
}

// Disconnected broadcasts a disconnect for key.
func (b *Bus) Disconnected(key string) {
	b.events.Fire(
		ConnectionChange{Reason: Disconnected, Key: key},
	)
}
