package storage

import "io"

// BlobStore archives raw uploads (question files) so a failed or disputed
// import can be replayed from the original bytes.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
