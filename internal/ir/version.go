package ir

// Version strings. WireVersion is stamped on every recorder session.
const (
	// WireVersion identifies the wire encoding produced by the codecs.
	WireVersion = "ros1-le/1"

	// Version is the rtmsg release.
	Version = "0.1.0"
)
