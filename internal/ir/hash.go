package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm change without ambiguity.
const (
	DomainMessage = "rtmsg/message/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, d := range data {
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MessageHash computes the content hash of a serialized message.
// The type name is part of the hashed data so identical bytes of two
// different types never collide.
func MessageHash(typeName string, payload []byte) string {
	return hashWithDomain(DomainMessage, []byte(typeName), []byte{0x00}, payload)
}
