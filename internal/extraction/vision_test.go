package extraction

import (
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"
)

func TestVisionBackend_Name(t *testing.T) {
	b := NewVisionBackend()
	if b.Name() != "vision" {
		t.Errorf("expected 'vision', got %q", b.Name())
	}
	if b.Model() != "DOCUMENT_TEXT_DETECTION" {
		t.Errorf("unexpected model %q", b.Model())
	}
}

func TestVisionText(t *testing.T) {
	text, err := visionText(&visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: "TOTAL 12.00\nTHANK YOU"},
	})
	if err != nil {
		t.Fatalf("visionText failed: %v", err)
	}
	if text != "TOTAL 12.00\nTHANK YOU" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestVisionText_FallsBackToTextAnnotations(t *testing.T) {
	text, err := visionText(&visionpb.AnnotateImageResponse{
		TextAnnotations: []*visionpb.EntityAnnotation{
			{Description: "whole block"},
			{Description: "whole"},
		},
	})
	if err != nil {
		t.Fatalf("visionText failed: %v", err)
	}
	if text != "whole block" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestVisionText_Errors(t *testing.T) {
	if _, err := visionText(nil); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("nil: expected ErrInvalidResponse, got %v", err)
	}
	if _, err := visionText(&visionpb.AnnotateImageResponse{}); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("empty: expected ErrInvalidResponse, got %v", err)
	}

	_, err := visionText(&visionpb.AnnotateImageResponse{
		Error: &status.Status{Code: 3, Message: "Bad image data."},
	})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if got := err.Error(); got != "extraction: visionText failed: Bad image data.: upstream request failed" {
		t.Errorf("unexpected error text %q", got)
	}
}
