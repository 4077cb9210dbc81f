package domain

import "errors"

var (
	// ErrEmptyInput signals document content with no usable text.
	ErrEmptyInput = errors.New("empty input")
	// ErrValidation signals a missing or malformed request field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized signals a missing or foreign owner identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientContent signals that retrieval found too little related
	// content to ground a quiz. Business-rule failure, not a fault: the caller
	// should broaden the topic, not retry.
	ErrInsufficientContent = errors.New("insufficient content")
	// ErrMalformedGeneration signals that the completion provider returned
	// output violating the quiz shape contract.
	ErrMalformedGeneration = errors.New("malformed generation output")

	// ErrEmbeddingProvider signals an embedding provider failure (retryable).
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a completion provider failure (retryable).
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrStoreWrite signals a persistence failure (retryable).
	ErrStoreWrite = errors.New("store write failed")
	// ErrDuplicateTitle signals an (owner, title) uniqueness violation on
	// quiz insert. The persistence writer retries with a suffixed title.
	ErrDuplicateTitle = errors.New("duplicate quiz title")
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
