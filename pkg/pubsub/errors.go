package pubsub

import "errors"

var (
	// ErrPublisherLimit is returned when a channel already has its maximum number of
	// publishers (or its single sender/receiver has been claimed).
	ErrPublisherLimit = errors.New("pubsub: publisher limit reached")

	// ErrSubscriberLimit is returned when every subscriber slot of a channel is in use.
	ErrSubscriberLimit = errors.New("pubsub: subscriber limit reached")

	// ErrKindMismatch is returned when a registry name is already bound to a channel of a
	// different kind or element type.
	ErrKindMismatch = errors.New("pubsub: channel kind or type mismatch")

	// ErrClosed is returned by operations on a closed subscriber or receiver.
	ErrClosed = errors.New("pubsub: closed")
)
