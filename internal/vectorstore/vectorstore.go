// Package vectorstore persists content chunks and their embeddings in
// pgvector under a single fixed collection.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores/pgvector"
)

const (
	chunkSize    = 500
	chunkOverlap = 50

	embeddingModel = "text-embedding-3-small"
)

// Store wraps the pgvector vector store and its connection pool.
type Store struct {
	store pgvector.Store
	pool  *pgxpool.Pool
}

// New connects to the vector database and binds the embeddings model to the
// collection.
func New(ctx context.Context, dbURL, collection, openAIKey string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vector db: %w", err)
	}

	client, err := openai.New(openai.WithToken(openAIKey), openai.WithEmbeddingModel(embeddingModel))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := pgvector.New(ctx,
		pgvector.WithConn(pool),
		pgvector.WithEmbedder(embedder),
		pgvector.WithCollectionName(collection),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	return &Store{store: store, pool: pool}, nil
}

// AddDocuments embeds the documents and writes chunks plus vectors.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error) {
	return s.store.AddDocuments(ctx, docs)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Split chunks documents with the recursive whitespace-preserving splitter
// (~500 characters, ~50 overlap). Chunk metadata is inherited from the
// source document.
func Split(docs []schema.Document) ([]schema.Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	split, err := textsplitter.SplitDocuments(splitter, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}
	return split, nil
}
