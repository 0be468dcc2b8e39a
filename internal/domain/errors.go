package domain

import "errors"

var (
	// ErrEmbedderUnavailable signals that the embedding collaborator is not initialized.
	ErrEmbedderUnavailable = errors.New("embedding model unavailable")
	// ErrStoreUnavailable signals that the trial store collaborator is not initialized or unreachable.
	ErrStoreUnavailable = errors.New("trial store unreachable")
	// ErrTrialNotFound signals a missing trial record.
	ErrTrialNotFound = errors.New("trial metadata not found")
	// ErrTopKOutOfRange signals an out-of-bounds result count. The message is part
	// of the API contract and must stay stable.
	ErrTopKOutOfRange = errors.New("required 0 < top_k <= 30")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatUnavailable signals that the generative chat backend is not configured.
	ErrChatUnavailable = errors.New("chat backend unavailable")
	// ErrGenerationFailed signals a generative backend failure.
	ErrGenerationFailed = errors.New("response generation failed")
)
