// Package material handles uploaded study materials, the only path through
// which files enter a generation request.
package material

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

const uploadPath = "/api/upload-material"

// Material is supplied exclusively by an explicit upload. The core never
// synthesizes one from free text.
type Material struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// UserData mirrors the collaborator's per-user payload carried alongside
// uploads and echoed back updated.
type UserData struct {
	Topics    []string   `json:"topics"`
	Materials []Material `json:"materials"`
}

// FindByFilename returns the first material matching one of the names.
func (d UserData) FindByFilename(names []string) (Material, bool) {
	for _, name := range names {
		for _, mat := range d.Materials {
			if mat.Filename == name {
				return mat, true
			}
		}
	}
	return Material{}, false
}

type UploadResult struct {
	Response        string   `json:"response"`
	NextState       string   `json:"nextState"`
	UpdatedUserData UserData `json:"updatedUserData"`
}

var allowedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

func AllowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Uploader posts a file plus the conversation context to the upload
// collaborator.
type Uploader struct {
	baseURL string
	client  *http.Client
}

func NewUploader(baseURL string, client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{baseURL: baseURL, client: client}
}

func (u *Uploader) Upload(ctx context.Context, filename string, content io.Reader, conversationState string, userData UserData) (*UploadResult, error) {
	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.WriteField("conversationState", conversationState); err != nil {
		return nil, err
	}
	userJSON, err := sonic.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("marshal user data: %w", err)
	}
	if err := writer.WriteField("userData", string(userJSON)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+uploadPath, strings.NewReader(buf.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload returned status %d: %s", resp.StatusCode, body)
	}

	var result UploadResult
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}
