package handler

import (
	"encoding/json"
	"net/http"

	services "github.com/senjoyee/ewa-mcp/service"
	"github.com/senjoyee/ewa-mcp/types"
)

// maxUploadSize bounds the accepted PDF size.
const maxUploadSize = 50 << 20

type UploadHandler struct {
	fileService *services.FileService
}

func NewUploadHandler(fileService *services.FileService) *UploadHandler {
	return &UploadHandler{
		fileService: fileService,
	}
}

func (h *UploadHandler) HandleUpload() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			h.sendError(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			h.sendError(w, "Invalid file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxUploadSize {
			h.sendError(w, "File too large", http.StatusBadRequest)
			return
		}

		req := types.UploadRequest{
			CustomerID: r.FormValue("customer_id"),
			FileName:   r.FormValue("file_name"),
		}
		if metadata := r.FormValue("metadata"); metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &req); err != nil {
				h.sendError(w, "Invalid metadata", http.StatusBadRequest)
				return
			}
		}
		if req.CustomerID == "" {
			h.sendError(w, "customer_id is required", http.StatusBadRequest)
			return
		}

		doc, err := h.fileService.UploadFile(r.Context(), req, header)
		if err != nil {
			h.sendError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		h.sendSuccess(w, doc.DocID, doc.FileName)
	})
}

func (h *UploadHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.DataResponse{
		Status:  false,
		Message: message,
	})
}

func (h *UploadHandler) sendSuccess(w http.ResponseWriter, docID, fileName string) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(types.DataResponse{
		Status: true,
		Data: types.UploadResponse{
			DocID:    docID,
			FileName: fileName,
		},
	})
}
