package types

// UploadRequest carries the metadata submitted alongside a PDF upload.
type UploadRequest struct {
	CustomerID string `json:"customer_id"`
	FileName   string `json:"file_name"`
}

// StatusRequest identifies a document for status polling, either by
// doc_id or by customer_id plus file_name.
type StatusRequest struct {
	DocID      string `json:"doc_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
}
