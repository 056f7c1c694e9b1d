package domain

// ChunkHandler receives each text fragment of a streaming generation as soon
// as it is available. Fragments are valid UTF-8 and arrive in order.
type ChunkHandler func(chunk string)

// StreamEvent is the JSON shape the CLI emits per fragment in --json mode.
type StreamEvent struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}
