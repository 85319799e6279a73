package model

// Document is the durable record of one processed edital.
type Document struct {
	ID                string `json:"id"`
	Filename          string `json:"filename"`
	Municipality      string `json:"municipality"`
	ItemCount         int    `json:"item_count"`
	Extractor         string `json:"extractor"`
	RowCount          int    `json:"row_count"`
	CSVKey            string `json:"csv_key"`
	EnhancedKey       string `json:"enhanced_key"`
	MatchedCount      int    `json:"matched_count"`
	TotalDescriptions int    `json:"total_descriptions"`
	Ctime             int64  `json:"ctime"`
}

// EmbeddingCache is one persisted embedding, keyed by model, task type and
// the sha256 of the embedded text.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
