package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"taskflow/internal/model"
)

// ErrCaptureCancelled is returned by a PhotoSource when the user backs out.
var ErrCaptureCancelled = errors.New("photo capture cancelled")

// PhotoSource produces the proof photo for completing a task. The returned
// string is stored as-is: a data URL, a Telegram file id or similar.
type PhotoSource interface {
	CapturePhoto(ctx context.Context, task model.Task) (string, error)
}

// PhotoFunc adapts a function to PhotoSource.
type PhotoFunc func(ctx context.Context, task model.Task) (string, error)

func (f PhotoFunc) CapturePhoto(ctx context.Context, task model.Task) (string, error) {
	return f(ctx, task)
}

// FilePhoto reads an image file and encodes it as a data URL.
type FilePhoto struct {
	Path string
}

func (p FilePhoto) CapturePhoto(ctx context.Context, _ model.Task) (string, error) {
	if p.Path == "" {
		return "", ErrCaptureCancelled
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("photo %s is empty", p.Path)
	}
	mime := http.DetectContentType(data)
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}
