package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace scopes chunk ids so they never collide with ids minted elsewhere.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pdf-chat-backend/chunks"))

// Chunk is a contiguous span of source text produced at ingestion time.
type Chunk struct {
	ID     string `bson:"chunk_id" json:"id"`
	Text   string `bson:"text" json:"page_content"`
	Source string `bson:"source" json:"source"`
	Page   int    `bson:"page" json:"page"`
	Order  int    `bson:"order" json:"order"`
}

// EmbeddedChunk is the stored form of a chunk in the vector index.
type EmbeddedChunk struct {
	Chunk     `bson:",inline"`
	Vector    []float32 `bson:"vector" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChunkID derives a stable identifier, so re-ingesting the same document overwrites in place.
func ChunkID(source string, page, order int, text string) string {
	key := source + "\x00" + strconv.Itoa(page) + "\x00" + strconv.Itoa(order) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// NewChunk builds a chunk with its derived id.
func NewChunk(source string, page, order int, text string) Chunk {
	return Chunk{
		ID:     ChunkID(source, page, order, text),
		Text:   text,
		Source: source,
		Page:   page,
		Order:  order,
	}
}

// IngestionReport summarizes one ingestion run.
type IngestionReport struct {
	Source     string        `json:"source"`
	Checksum   string        `json:"checksum"`
	Pages      int           `json:"pages"`
	ChunkCount int           `json:"chunk_count"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}

// IndexStatus describes the vector index as seen by the backend.
type IndexStatus struct {
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Exists    bool   `json:"exists"`
	Ready     bool   `json:"ready"`
	Count     int64  `json:"count"`
}
