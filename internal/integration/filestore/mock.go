package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/entity"
)

// MockConnector keeps uploaded files in memory with deterministic ids.
type MockConnector struct {
	logger *zap.Logger

	mu      sync.Mutex
	files   map[string][]byte
	counter int
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
		files:  make(map[string][]byte),
	}
}

func (m *MockConnector) Upload(ctx context.Context, file entity.FileUpload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	fileID := fmt.Sprintf("mock-file-%d", m.counter)
	m.files[fileID] = file.Data

	ctxzap.Info(ctx, "[MOCK] file uploaded",
		zap.String("filename", file.Filename),
		zap.String("file_id", fileID),
	)
	return fileID, nil
}

func (m *MockConnector) Download(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("mock file %s not found", fileID)
	}
	return data, nil
}

func (m *MockConnector) Delete(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, fileID)
	return nil
}
