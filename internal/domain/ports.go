package domain

import "context"

// DimensionSource reads the (id, name) rows of one dimension table.
type DimensionSource interface {
	LoadDimension(ctx context.Context, dim Dimension) ([]NamedID, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a role-tagged prompt to a text-completion model.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, temperature float64) (string, error)
}

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// OfferSource is the upstream travel-offers API used by the ingestor.
type OfferSource interface {
	Directory(ctx context.Context, dim Dimension) ([]map[string]any, error)
	CheapestTours(ctx context.Context, q TourSearch) ([]map[string]any, error)
}

// InventoryRepository is the write side of the tour store.
type InventoryRepository interface {
	UpsertDimension(ctx context.Context, dim Dimension, rows []NamedID) error
	UpsertTours(ctx context.Context, tours []TourOffer) error
	LogMiss(ctx context.Context, route string, status int, reason string) error
}
