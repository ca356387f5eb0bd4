package core

// Frame is a single encoded event payload headed for a connection.
type Frame []byte

// ChannelID identifies one live connection. It is the transient channel
// identifier recorded on a connected Member.
type ChannelID string

// Role tags a bound connection within a session group.
type Role string

const (
	RoleHost   Role = "dm"
	RolePlayer Role = "player"
)

// SignalConnection abstracts the messaging transport for one member.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
