package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/types"
	"github.com/senjoyee/ewa-mcp/utils"
)

// FileService accepts uploaded report PDFs, stores them under
// {uploadDir}/{customer_id}/{filename}, and hands them to the pipeline.
type FileService struct {
	uploadDir string
	pipeline  *PipelineService
	logger    *zap.Logger
}

func NewFileService(uploadDir string, pipeline *PipelineService, logger *zap.Logger) (*FileService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileService{
		uploadDir: uploadDir,
		pipeline:  pipeline,
		logger:    logger,
	}, nil
}

// UploadFile validates and stores the upload, then runs the processing
// pipeline on it. Non-PDF uploads are rejected before anything is
// written.
func (s *FileService) UploadFile(ctx context.Context, req types.UploadRequest, file *multipart.FileHeader) (*types.Document, error) {
	if req.CustomerID == "" {
		return nil, fmt.Errorf("customer_id is required")
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = file.Filename
	}
	if !utils.IsPDF(fileName) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(fileName))
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	pdfBytes, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	fileName = utils.SanitizeFileName(fileName)
	customerDir := filepath.Join(s.uploadDir, utils.SanitizeFileName(req.CustomerID))
	if err := os.MkdirAll(customerDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create customer directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(customerDir, fileName), pdfBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	s.logger.Info("stored upload",
		zap.String("customer_id", req.CustomerID),
		zap.String("file_name", fileName),
		zap.Int("bytes", len(pdfBytes)))

	return s.pipeline.Process(ctx, pdfBytes, req.CustomerID, fileName)
}

// ProcessLocalFile runs the pipeline on a PDF already on disk; used by
// the one-shot process command.
func (s *FileService) ProcessLocalFile(ctx context.Context, customerID, path string) (*types.Document, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.pipeline.Process(ctx, pdfBytes, customerID, filepath.Base(path))
}
