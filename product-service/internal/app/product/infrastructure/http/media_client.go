package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/infrastructure"
)

// MediaClient - клиент для взаимодействия с media storage сервисом
// Используется для загрузки и удаления изображений товаров
type MediaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMediaClient создает новый клиент media storage
func NewMediaClient(baseURL, apiKey string) *MediaClient {
	return &MediaClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // загрузка изображений медленнее обычных запросов
		},
	}
}

type uploadResponse struct {
	StorageID string `json:"storage_id"`
	URL       string `json:"url"`
}

type deleteRequest struct {
	StorageIDs []string `json:"storage_ids"`
}

type deleteResponse struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// UploadMany загружает файлы последовательно
// Batch endpoint в media API отсутствует, поэтому файлы уходят по одному;
// при ошибке возвращаются уже загруженные записи вместе с ошибкой -
// вызывающая сторона обязана их освободить
func (c *MediaClient) UploadMany(ctx context.Context, files []entity.UploadFile, folder string) ([]entity.Image, error) {
	uploaded := make([]entity.Image, 0, len(files))

	for _, file := range files {
		image, err := c.upload(ctx, file, folder)
		if err != nil {
			metrics.MediaUploads.WithLabelValues("failed").Inc()
			return uploaded, fmt.Errorf("failed to upload %s: %w", file.Name, err)
		}
		metrics.MediaUploads.WithLabelValues("success").Inc()
		uploaded = append(uploaded, *image)
	}

	return uploaded, nil
}

func (c *MediaClient) upload(ctx context.Context, file entity.UploadFile, folder string) (*entity.Image, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.WriteField("folder", folder); err != nil {
		return nil, fmt.Errorf("failed to write folder field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/v1/media", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &entity.Image{StorageID: result.StorageID, URL: result.URL}, nil
}

// DeleteMany удаляет объекты из media storage одним запросом
// Частичная неудача не является ошибкой вызова: media API возвращает
// списки succeeded/failed, решение о повторе остаётся за вызывающей стороной
func (c *MediaClient) DeleteMany(ctx context.Context, storageIDs []string) (*infrastructure.DeleteResult, error) {
	if len(storageIDs) == 0 {
		return &infrastructure.DeleteResult{}, nil
	}

	payload, err := json.Marshal(deleteRequest{StorageIDs: storageIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delete request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/media/delete", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result deleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &infrastructure.DeleteResult{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}, nil
}
