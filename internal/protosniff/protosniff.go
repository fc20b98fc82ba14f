// Package protosniff classifies the opening bytes of a TCP stream into
// one of the protocol tags spec §4.2 defines. It never blocks and never
// consumes bytes from any reader — it is a pure function over a byte
// slice, mirroring the teacher's buffer-inspection style in sock.go.
package protosniff

import "github.com/diogin/multiflowproxy/internal/config"

const sshPrefix = "SSH-"

// Sniff classifies opening bytes by byte shape, in the fixed rule order
// spec §4.2 lists. sshOnly collapses every non-SSH classification to SSH,
// per the "single-backend deployments with incidental scanner traffic"
// intent.
func Sniff(b []byte, sshOnly bool) config.Protocol {
	if len(b) >= len(sshPrefix) && string(b[:len(sshPrefix)]) == sshPrefix {
		return config.ProtocolSSH
	}
	if sshOnly {
		return config.ProtocolSSH
	}
	if len(b) < 2 {
		return config.ProtocolUnknown
	}
	if isOpenVPN(b) {
		return config.ProtocolOpenVPN
	}
	if isVMess(b) {
		return config.ProtocolVMess
	}
	return config.ProtocolUnknown
}

// isOpenVPN implements the TCP-framed UDP packet-type heuristic: the top
// nibble of the first byte is 0x2 or 0x3.
func isOpenVPN(b []byte) bool {
	top := b[0] & 0xF0
	return top == 0x20 || top == 0x30
}

// isVMess implements the heuristic preserved as-is from the source per
// §9's open question: it has a high false-positive rate but is kept for
// compatibility.
func isVMess(b []byte) bool {
	if len(b) < 16 {
		return false
	}
	if b[0] == 0x01 && b[1] == 0x00 {
		return true
	}
	highBitCount := 0
	for i := 0; i < 16; i++ {
		if b[i]&0x80 != 0 {
			highBitCount++
		}
	}
	return highBitCount > 8
}
