package models

import (
	"crypto/sha1" //nolint:gosec // git blob ids are sha1
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"captioner/internal/fileutil"
)

// digestAlgo names how a file's expected digest was computed.
type digestAlgo string

const (
	algoSHA256 digestAlgo = "sha256"
	// algoGitSHA1 is the git blob id the hub reports for files kept outside LFS.
	algoGitSHA1 digestAlgo = "git-sha1"
)

// hashFile returns the digest of path under algo along with its size.
func hashFile(path string, algo digestAlgo) (string, int64, error) {
	if algo == algoGitSHA1 {
		return gitBlobID(path)
	}
	return fileutil.SHA256File(path)
}

func gitBlobID(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", 0, err
	}

	h := sha1.New() //nolint:gosec
	fmt.Fprintf(h, "blob %d\x00", info.Size())
	n, err := io.Copy(h, file)
	if err != nil {
		return "", n, err
	}
	if n != info.Size() {
		return "", n, fmt.Errorf("%s changed while hashing", path)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
