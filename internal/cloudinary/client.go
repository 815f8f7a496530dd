package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the Cloudinary REST API root.
const DefaultEndpoint = "https://api.cloudinary.com/v1_1"

// Client uploads QR credential images to Cloudinary using their REST API.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Endpoint  string
	HTTP      *http.Client
	now       func() time.Time
}

// New creates a Cloudinary client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		Endpoint:  DefaultEndpoint,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// UploadPNG uploads a rendered QR image. With a publicID the upload
// overwrites the previous image for the same holder, so re-issuing keeps one
// image per credential.
func (c *Client) UploadPNG(ctx context.Context, png []byte, publicID string) (*UploadResult, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.APIKey,
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	if publicID != "" {
		params["public_id"] = publicID
		params["overwrite"] = "true"
	}
	params["signature"] = c.sign(params)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	name := publicID
	if name == "" {
		name = "qr"
	}
	part, err := w.CreateFormFile("file", name+".png")
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create form file failed: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return nil, fmt.Errorf("cloudinary: write file failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary: close form failed: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.Endpoint, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("cloudinary: decode response failed: %w", err)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary: response has no secure_url")
	}
	return &result, nil
}

// sign computes the Cloudinary API signature: the sorted k=v pairs joined
// with '&' followed by the secret, SHA-1 hex encoded. api_key, file and
// resource_type are not signed.
func (c *Client) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return fmt.Sprintf("%x", sum)
}
