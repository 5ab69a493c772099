package handler

import (
	"encoding/json"
	"net/http"

	"github.com/senjoyee/ewa-mcp/database"
	"github.com/senjoyee/ewa-mcp/types"
)

type StatusHandler struct {
	index database.DocumentIndex
}

func NewStatusHandler(index database.DocumentIndex) *StatusHandler {
	return &StatusHandler{
		index: index,
	}
}

// HandleStatus reports the processing status of a document, looked up
// either by doc_id or by customer_id plus file_name.
func (h *StatusHandler) HandleStatus() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodGet {
			h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req := types.StatusRequest{
			DocID:      r.URL.Query().Get("doc_id"),
			CustomerID: r.URL.Query().Get("customer_id"),
			FileName:   r.URL.Query().Get("file_name"),
		}

		var (
			doc *types.Document
			err error
		)
		switch {
		case req.DocID != "":
			doc, err = h.index.GetDocument(r.Context(), req.DocID)
		case req.CustomerID != "" && req.FileName != "":
			doc, err = h.index.FindDocument(r.Context(), req.CustomerID, req.FileName)
		default:
			h.sendError(w, "doc_id or customer_id and file_name required", http.StatusBadRequest)
			return
		}
		if err != nil {
			h.sendError(w, "Status lookup failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if doc == nil {
			h.sendError(w, "Document not found", http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(types.DataResponse{
			Status: true,
			Data: types.StatusResponse{
				DocID:            doc.DocID,
				ProcessingStatus: doc.ProcessingStatus,
				AlertCount:       doc.AlertCount,
				ChunkCount:       doc.ChunkCount,
			},
		})
	})
}

func (h *StatusHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.DataResponse{
		Status:  false,
		Message: message,
	})
}
