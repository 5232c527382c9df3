// Package filestore uploads user documents to the LLM provider's file store
// so their ids can be attached to conversation turns.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	retrygo "github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/validator"
)

type Connector struct {
	client *openai.Client
	config config.FileStoreConnectorConfig
	logger *zap.Logger
}

func NewConnector(cfg config.FileStoreConnectorConfig, logger *zap.Logger) *Connector {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &Connector{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Upload stores one document and returns its file id. Uploads are idempotent
// on the provider side, so transient failures are retried.
func (c *Connector) Upload(ctx context.Context, file entity.FileUpload) (string, error) {
	ctxzap.Info(ctx, "uploading file to file store",
		zap.String("filename", file.Filename),
		zap.Int("size", len(file.Data)),
	)

	fileID, err := retrygo.DoWithData(func() (string, error) {
		resp, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
			Name:    validator.SanitizeFilename(file.Filename),
			Bytes:   file.Data,
			Purpose: openai.PurposeAssistants,
		})
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	}, append(c.config.Retry.ToRetryOptions(), retrygo.Context(ctx))...)
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", file.Filename, err)
	}

	ctxzap.Info(ctx, "file uploaded", zap.String("file_id", fileID))
	return fileID, nil
}

// Download fetches a stored file's content, used when re-exporting source
// documents. Provided for completeness of the collaborator contract.
func (c *Connector) Download(ctx context.Context, fileID string) ([]byte, error) {
	raw, err := c.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer raw.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(raw); err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return buf.Bytes(), nil
}

// Delete removes a stored file; orphaned uploads are cleaned up when their
// canvas is deleted permanently.
func (c *Connector) Delete(ctx context.Context, fileID string) error {
	if err := c.client.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}
