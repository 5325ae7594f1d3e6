package pipeline

import (
	"strings"

	"github.com/minio/highwayhash"
)

var blobKey = []byte("fxgest-blob-dedup-highwayhash-k!")

// BlobSet keeps exact-string unique document blobs in first-seen order.
// Blobs are bucketed by a 64-bit HighwayHash; equal hashes are compared in
// full so a collision never drops a distinct blob.
type BlobSet struct {
	buckets map[uint64][]int
	blobs   []string
}

func NewBlobSet() *BlobSet {
	return &BlobSet{buckets: make(map[uint64][]int)}
}

// Add inserts blob and reports whether it was new.
func (s *BlobSet) Add(blob string) bool {
	h := hashBlob(blob)
	for _, i := range s.buckets[h] {
		if s.blobs[i] == blob {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], len(s.blobs))
	s.blobs = append(s.blobs, blob)
	return true
}

func (s *BlobSet) Len() int { return len(s.blobs) }

// Join concatenates the unique blobs separated by a blank line.
func (s *BlobSet) Join() string {
	return strings.Join(s.blobs, "\n\n")
}

var hashBlob = func(blob string) uint64 {
	return highwayhash.Sum64([]byte(blob), blobKey)
}
