// Package stt wraps the AssemblyAI SDK for op 341 (speech-to-text).
// The recorded file is uploaded, transcribed, and the transcript text
// is handed back for the caller to write into the variable store (op
// 341 stores it under the node's tag_name).
package stt

import (
	"context"
	"fmt"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
)

// Client transcribes recorded call audio.
type Client struct {
	aai *aai.Client
}

// NewClient creates a Client bound to an AssemblyAI API key.
func NewClient(apiKey string) *Client {
	return &Client{aai: aai.NewClient(apiKey)}
}

// Transcribe uploads the file at path and blocks until AssemblyAI
// finishes transcribing it, returning the transcript text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording %q: %w", path, err)
	}
	defer f.Close()

	uploadURL, err := c.aai.Upload(ctx, f)
	if err != nil {
		return "", fmt.Errorf("upload recording %q: %w", path, err)
	}

	transcript, err := c.aai.Transcripts.TranscribeFromURL(ctx, uploadURL, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe recording %q: %w", path, err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := ""
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return "", fmt.Errorf("assemblyai transcription failed: %s", msg)
	}

	if transcript.Text == nil {
		return "", nil
	}

	return *transcript.Text, nil
}
