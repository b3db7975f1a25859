package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	VariantPublic    = "public"    // Orijinal boyut
	VariantThumbnail = "thumbnail" // Kurs kartlarında kullanılan küçük boyut
)

const cloudflareAPIBase = "https://api.cloudflare.com/client/v4"

// CloudflareImages stores course thumbnails on Cloudflare Images and builds
// delivery URLs from the account hash.
type CloudflareImages struct {
	accountID   string
	apiToken    string
	accountHash string
	baseURL     string
	client      *http.Client
}

// APIError is a non-success reply from the Images API.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("cloudflare images: status %d", e.Status)
	}
	return fmt.Sprintf("cloudflare images: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

type imagesEnvelope struct {
	Success bool `json:"success"`
	Result  struct {
		ID       string   `json:"id"`
		Variants []string `json:"variants"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func NewCloudflareImages(accountID, token, accountHash string) *CloudflareImages {
	return &CloudflareImages{
		accountID:   accountID,
		apiToken:    token,
		accountHash: accountHash,
		baseURL:     cloudflareAPIBase,
		client: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Upload sends one image with the given metadata attached and returns the
// image ID plus its public and thumbnail URLs.
func (c *CloudflareImages) Upload(ctx context.Context, reader io.Reader, filename string, metadata map[string]string) (string, []string, error) {
	body, contentType, err := imageForm(reader, filename, metadata)
	if err != nil {
		return "", nil, err
	}

	// bytes.Reader gövdesi ile GetBody otomatik ayarlanır, HTTP/2 retry çalışır
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imagesURL(""), bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	envelope, err := c.do(req)
	if err != nil {
		return "", nil, err
	}

	id := envelope.Result.ID
	return id, []string{c.GetPublicURL(id), c.GetThumbnailURL(id)}, nil
}

// Delete removes an image. An image that is already gone counts as deleted.
func (c *CloudflareImages) Delete(ctx context.Context, imageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.imagesURL(imageID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = c.do(req)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *CloudflareImages) GetPublicURL(imageID string) string {
	return c.GetVariantURL(imageID, VariantPublic)
}

func (c *CloudflareImages) GetThumbnailURL(imageID string) string {
	return c.GetVariantURL(imageID, VariantThumbnail)
}

func (c *CloudflareImages) GetVariantURL(imageID string, variant string) string {
	return fmt.Sprintf("https://imagedelivery.net/%s/%s/%s", c.accountHash, imageID, variant)
}

func (c *CloudflareImages) imagesURL(imageID string) string {
	u := fmt.Sprintf("%s/accounts/%s/images/v1", c.baseURL, c.accountID)
	if imageID != "" {
		u += "/" + imageID
	}
	return u
}

func (c *CloudflareImages) do(req *http.Request) (*imagesEnvelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var envelope imagesEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode != http.StatusOK || !envelope.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		for _, e := range envelope.Errors {
			apiErr.Messages = append(apiErr.Messages, fmt.Sprintf("%d %s", e.Code, e.Message))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return &envelope, nil
}

func imageForm(reader io.Reader, filename string, metadata map[string]string) ([]byte, string, error) {
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, "", errors.New("empty file, size is 0 bytes")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return nil, "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.WriteField("requireSignedURLs", "false"); err != nil {
		return nil, "", fmt.Errorf("failed to add form field: %w", err)
	}
	if len(metadata) > 0 {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode metadata: %w", err)
		}
		if err := writer.WriteField("metadata", string(meta)); err != nil {
			return nil, "", fmt.Errorf("failed to add form field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
