package diff

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// ReportPaths reports existence, type, and content hash for each surfaced
// path, sorted. The digest is SHA-1 to match the ruleKey(sha1=...) space the
// logs use. A failure on one path is reported inline and never aborts the
// rest.
func ReportPaths(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var result []string
	for _, path := range sorted {
		fi, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			result = append(result, fmt.Sprintf(" %s does not exist", path))
		case err != nil:
			result = append(result, fmt.Sprintf(" %s error hashing: %v", path, err))
		case !fi.Mode().IsRegular():
			result = append(result, fmt.Sprintf(" %s is not a file", path))
		default:
			sum, err := hashFile(path)
			if err != nil {
				result = append(result, fmt.Sprintf(" %s error hashing: %v", path, err))
				continue
			}
			result = append(result, fmt.Sprintf(" %s exists and hashes to %s", path, sum))
		}
	}
	return result
}

// hashFile computes the SHA-1 of a file's content with buffered sequential
// reads and returns it hex-encoded.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, bufio.NewReaderSize(f, 128*1024)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
