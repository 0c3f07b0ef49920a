// Package ports defines interfaces (contracts) between the generator and its
// infrastructure. Implementations live in adapters/.
package ports

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Sink receives generated sources.
type Sink interface {
	// Write stores src as the content of the output file at path.
	Write(path string, src []byte) error
}
