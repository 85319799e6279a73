package rag

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/xxxsen/licitarag/internal/filestore"
)

type snapshot struct {
	Chunks     []string
	Embeddings [][]float32
	Content    string
	Metadata   map[string]string
}

func SnapshotKey(id string) string {
	return id + "_embeddings.gob"
}

func saveSnapshot(ctx context.Context, store filestore.Store, e *Entry) error {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&snapshot{
		Chunks:     e.Chunks,
		Embeddings: e.Embeddings,
		Content:    e.Content,
		Metadata:   e.Metadata,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return filestore.SaveBytes(ctx, store, SnapshotKey(e.ID), buf.Bytes())
}

func loadSnapshot(ctx context.Context, store filestore.Store, id string) (*Entry, error) {
	data, err := filestore.ReadAll(ctx, store, SnapshotKey(id))
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return newEntry(id, snap.Chunks, snap.Embeddings, snap.Content, snap.Metadata)
}
