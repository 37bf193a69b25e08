package history

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// recordDomainKey is the BLAKE3 keyed-hash domain for job record
// checksums. The bytes are the ASCII domain name zero-padded to 32,
// which keeps the key readable in hex dumps. Changing it invalidates
// every stored checksum.
var recordDomainKey = [32]byte{
	'r', 'e', 'e', 'v', 'e', '.', 'j', 'o', 'b', '.', 'r', 'e', 'c', 'o', 'r', 'd',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// recordChecksum computes the hex-encoded keyed BLAKE3 digest of
// canonical record bytes.
func recordChecksum(data []byte) string {
	hasher, err := blake3.NewKeyed(recordDomainKey[:])
	if err != nil {
		panic("history: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
