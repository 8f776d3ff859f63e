package chroma

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

// maxDocumentChars keeps documents under the embedding model's input limit.
const maxDocumentChars = 10000

type ChromaClient struct {
	client    chroma.Client
	embedFunc *gemini.GeminiEmbeddingFunction

	mu          sync.Mutex
	collections map[string]chroma.Collection
}

// NewChromaClient connects to a self-hosted Chroma when ChromaURL is set and to
// Chroma Cloud otherwise.
func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaURL == "" && cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_URL or CHROMA_API_KEY is required")
	}

	// The embedding function reads its key from the environment
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{}
	if cfg.ChromaURL != "" {
		opts = append(opts, chroma.WithBaseURL(cfg.ChromaURL))
	} else {
		opts = append(opts,
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	return &ChromaClient{
		client:      client,
		embedFunc:   embedFunc,
		collections: make(map[string]chroma.Collection),
	}, nil
}

func (c *ChromaClient) collection(ctx context.Context, name string) (chroma.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if col, ok := c.collections[name]; ok {
		return col, nil
	}
	col, err := c.client.GetOrCreateCollection(ctx, name, chroma.WithEmbeddingFunctionCreate(c.embedFunc))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	log.Printf("[Chroma] Opened collection %s", name)
	c.collections[name] = col
	return col, nil
}

// Upsert adds or replaces docID in the named collection.
func (c *ChromaClient) Upsert(ctx context.Context, collectionName, docID, text string, metadata map[string]interface{}) error {
	col, err := c.collection(ctx, collectionName)
	if err != nil {
		return err
	}

	if runes := []rune(text); len(runes) > maxDocumentChars {
		text = string(runes[:maxDocumentChars])
	}

	meta, err := chroma.NewDocumentMetadataFromMap(metadata)
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = col.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(docID)),
		chroma.WithMetadatas(meta),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", docID, err)
	}
	return nil
}

// Close releases the underlying HTTP client.
func (c *ChromaClient) Close() error {
	return c.client.Close()
}
