package models

import "time"

const (
	// DownloadFileName is the file name offered when extracted text is downloaded.
	DownloadFileName = "extracted_text.md"

	// DownloadMIMEType is the media type of the downloaded Markdown.
	DownloadMIMEType = "text/markdown"
)

type ExtractionResult struct {
	// Extracted content
	Text string `json:"text"` // Markdown exactly as returned by the upstream service

	// Upstream that produced the text
	Backend string `json:"backend"` // gemini, vision, openai
	Model   string `json:"model"`   // model or feature identifier sent upstream

	// Input metadata
	ImageWidth   int `json:"image_width"`   // width of the image that was sent
	ImageHeight  int `json:"image_height"`  // height of the image that was sent
	EncodedBytes int `json:"encoded_bytes"` // size of the PNG payload before base64

	// Timing
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}
