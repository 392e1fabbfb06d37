package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine implements ImageEngine with Google Cloud Vision DOCUMENT_TEXT_DETECTION.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngine prefers inline GOOGLE_CREDENTIALS JSON, then a credentials file,
// then application default credentials.
func NewVisionEngine(ctx context.Context, credentialsJSON, credentialsFile string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error
	switch {
	case credentialsJSON != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	case credentialsFile != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credentialsFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	default:
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
	}
	return &VisionEngine{client: client}, nil
}

func (v *VisionEngine) ImageToText(ctx context.Context, path string) (string, error) {
	const op = "ImageToText"

	data, err := os.ReadFile(path)
	if err != nil {
		return "", WrapOCRError(op, err, "read image")
	}
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	r := resp.GetResponses()[0]
	if r.GetError() != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", r.GetError().GetMessage()))
	}
	return r.GetFullTextAnnotation().GetText(), nil
}

func (v *VisionEngine) Close() error {
	return v.client.Close()
}
