package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cinereco/internal/dataset"
)

// Fingerprint identifies the inputs of a final snapshot: the schema version,
// the dataset kind, the normalisation settings and the content hash of the
// raw snapshot.
func Fingerprint(kind, settings, rawSHA256 string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "schema=%d\nkind=%s\nsettings=%s\nraw=%s\n",
		dataset.SchemaVersion, kind, settings, rawSHA256))
	return hex.EncodeToString(sum[:])
}
