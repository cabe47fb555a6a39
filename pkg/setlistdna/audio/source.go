package audio

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// SourceID identifies a recording by absolute path, size and modification
// time. Re-encoding or touching the file yields a new id.
func SourceID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := sha1.New()
	fmt.Fprint(h, abs)
	if info, err := os.Stat(path); err == nil {
		fmt.Fprintf(h, "|%d|%d", info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
