//go:generate mockgen -source=signal_iface.go -destination=mocks/signal_mock.go -package=mocks

package core

// Frame is one encoded protocol message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
