// Package docstore is a small document store keyed by (collection, id).
// Document bodies are JSON. Writes go through a Batch, which applies all of
// its operations atomically or none of them.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrBatchCommitted   = errors.New("batch already committed")
	ErrInvalidReference = errors.New("collection and id are required")
)

// Document is a stored JSON body plus bookkeeping timestamps.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v interface{}) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

type Reader interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// List returns every document of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)
}

type Store interface {
	Reader
	Batch() *Batch
}

type OpKind int

const (
	// OpSet creates or overwrites a document.
	OpSet OpKind = iota
	// OpUpdate overwrites an existing document and fails the batch if it is missing.
	OpUpdate
	// OpDelete removes a document; deleting a missing one is not an error.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       json.RawMessage
}

// CommitFunc applies ops atomically.
type CommitFunc func(ctx context.Context, ops []Op) error

// Batch accumulates writes until Commit. A Batch is not safe for concurrent use.
type Batch struct {
	ops       []Op
	err       error
	commit    CommitFunc
	committed bool
}

func NewBatch(commit CommitFunc) *Batch {
	return &Batch{commit: commit}
}

func (b *Batch) Set(collection, id string, v interface{}) *Batch {
	return b.write(OpSet, collection, id, v)
}

func (b *Batch) Update(collection, id string, v interface{}) *Batch {
	return b.write(OpUpdate, collection, id, v)
}

func (b *Batch) Delete(collection, id string) *Batch {
	if b.err != nil {
		return b
	}
	if collection == "" || id == "" {
		b.err = ErrInvalidReference
		return b
	}
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) write(kind OpKind, collection, id string, v interface{}) *Batch {
	if b.err != nil {
		return b
	}
	if collection == "" || id == "" {
		b.err = ErrInvalidReference
		return b
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode %s/%s: %w", collection, id, err)
		return b
	}
	b.ops = append(b.ops, Op{Kind: kind, Collection: collection, ID: id, Data: data})
	return b
}

// Len returns the number of staged operations.
func (b *Batch) Len() int { return len(b.ops) }

// Commit applies the staged operations. An empty batch commits trivially.
func (b *Batch) Commit(ctx context.Context) error {
	if b.committed {
		return ErrBatchCommitted
	}
	if b.err != nil {
		return b.err
	}
	b.committed = true
	if len(b.ops) == 0 {
		return nil
	}
	return b.commit(ctx, b.ops)
}
