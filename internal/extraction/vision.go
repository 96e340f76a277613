package extraction

import (
	"context"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionBackend implements Backend using Google Cloud Vision document text
// detection. The prompt is ignored; the full text annotation is returned as-is.
type VisionBackend struct {
	opts []option.ClientOption
}

// NewVisionBackend creates a Cloud Vision backend.
func NewVisionBackend(opts ...option.ClientOption) *VisionBackend {
	return &VisionBackend{opts: opts}
}

// Name implements Backend.
func (v *VisionBackend) Name() string { return "vision" }

// Model implements Backend.
func (v *VisionBackend) Model() string { return visionpb.Feature_DOCUMENT_TEXT_DETECTION.String() }

// Generate runs document text detection on the PNG payload.
func (v *VisionBackend) Generate(ctx context.Context, payload *Payload, credential string) (string, error) {
	const op = "VisionBackend.Generate"

	opts := append([]option.ClientOption{option.WithAPIKey(credential)}, v.opts...)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return "", upstreamError(op, err)
	}
	defer client.Close()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: payload.Data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", upstreamError(op, err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", NewExtractionError(op, ErrInvalidResponse, "no response from Vision API")
	}

	return visionText(resp.GetResponses()[0])
}

// visionText extracts the full text annotation from a single image response.
func visionText(resp *visionpb.AnnotateImageResponse) (string, error) {
	const op = "visionText"

	if resp == nil {
		return "", NewExtractionError(op, ErrInvalidResponse, "empty response")
	}
	if resp.GetError() != nil {
		return "", &ExtractionError{Op: op, Err: ErrUpstream, Details: resp.GetError().GetMessage()}
	}

	text := resp.GetFullTextAnnotation().GetText()
	if strings.TrimSpace(text) == "" {
		// Plain TEXT_DETECTION results carry the whole block in the first annotation.
		if annotations := resp.GetTextAnnotations(); len(annotations) > 0 {
			text = annotations[0].GetDescription()
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", NewExtractionError(op, ErrInvalidResponse, "response has no text")
	}

	return text, nil
}
