package coding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// TxHash returns the upper case hex sha256 of encoded tx bytes, which is how nodes index transactions.
func TxHash(txBytes []byte) string {
	sum := sha256.Sum256(txBytes)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// PayloadFingerprint identifies a payload in logs without printing all of it.
func PayloadFingerprint(payload []byte) string {
	switch {
	case len(payload) == 0:
		return "[]"
	case len(payload) <= 8:
		return hex.EncodeToString(payload)
	default:
		return fmt.Sprintf("[%x...%x]", payload[:4], payload[len(payload)-4:])
	}
}
