package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/hashicorp/go-uuid"
)

// ErrRecordNotFound is returned when a handle does not name a stored record
var ErrRecordNotFound = errors.New("record not found")

// Store keeps record payloads outside the tree. The tree only ever sees the
// handles it hands out.
type Store interface {
	bptree.RecordReleaser

	// Write stores the payload for key and returns a handle to it
	Write(ctx context.Context, key int, payload []byte) (bptree.RecordHandle, error)
	// Read returns the payload behind a handle
	Read(ctx context.Context, handle bptree.RecordHandle) ([]byte, error)
}

// genHandleID generates a fresh identifier for a record
func genHandleID() (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}
	return id, nil
}
