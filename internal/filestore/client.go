// Package filestore talks to the remote file storage provider that hosts
// product assets. The provider API is non-transactional; deletions that
// must follow a database commit are queued on the side-effect queue by the
// callers, never issued inside a transaction.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// File describes an uploaded remote file.
type File struct {
	FileID   string `json:"file_id"`
	URL      string `json:"url"`
	SizeInKB int64  `json:"size_kb"`
}

type Client struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
}

// NewClient creates a storage client
func NewClient(baseURL, privateKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores a file under a unique name in the products folder and
// returns its remote identity.
func (c *Client) Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (*File, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("fileName", fmt.Sprintf("%s-%s", uuid.New().String()[:8], fileName)); err != nil {
		return nil, err
	}
	if err := mw.WriteField("folder", "products"); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("failed to read upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.privateKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("storage upload failed: status %d", resp.StatusCode)
	}

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if f.SizeInKB == 0 && size > 0 {
		f.SizeInKB = size / 1024
	}
	return &f, nil
}

// Delete removes a remote file by its provider identity.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.privateKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("storage delete failed: status %d", resp.StatusCode)
	}
	return nil
}
