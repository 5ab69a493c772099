package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type UploadResponse struct {
	DocID    string `json:"doc_id"`
	FileName string `json:"file_name"`
}

type StatusResponse struct {
	DocID            string `json:"doc_id"`
	ProcessingStatus string `json:"processing_status"`
	AlertCount       *int   `json:"alert_count,omitempty"`
	ChunkCount       *int   `json:"chunk_count,omitempty"`
}
