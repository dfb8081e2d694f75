package models

// Image is one still frame produced by a camera.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// FaceVerification is the boundary's answer to POST /face/verify: either an
// issued token pair, or a second-factor requirement naming the identified
// user and embedding.
type FaceVerification struct {
	Tokens      Tokens
	RequiresPin bool
	UserID      int64
	EmbeddingID int64
	Message     string
}

// PinStatus describes the PIN bound to the user's embedding. The PIN value
// itself never comes back from the boundary.
type PinStatus struct {
	HasPin   bool   `json:"has_pin"`
	PinID    *int64 `json:"pin_id,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// EmbeddingStatus reports whether a face embedding is enrolled.
type EmbeddingStatus struct {
	HasEmbedding bool `json:"emb"`
}

// Enrollment is the boundary's answer to storing a face embedding.
type Enrollment struct {
	EmbeddingID int64 `json:"embedding_id"`
}
