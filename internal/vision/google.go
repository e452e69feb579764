package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lmcosta/snapsight/internal/model"
)

const defaultMaxResults = 10

// GoogleClient implements Detector against the Google Vision REST API.
// Each detector issues its own images:annotate request with a single
// feature, so the five calls stay independently failable.
type GoogleClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewGoogleClient constructs a client. endpoint is the images:annotate URL;
// pointing it at a test server is how the client is exercised offline.
func NewGoogleClient(apiKey, endpoint string) *GoogleClient {
	return &GoogleClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateEnvelope struct {
	Responses []annotateResponse `json:"responses"`
	Error     *apiError          `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	LabelAnnotations          []labelAnnotation `json:"labelAnnotations"`
	TextAnnotations           []textAnnotation  `json:"textAnnotations"`
	FaceAnnotations           []faceAnnotation  `json:"faceAnnotations"`
	SafeSearchAnnotation      *safeSearchResult `json:"safeSearchAnnotation"`
	ImagePropertiesAnnotation *imageProperties  `json:"imagePropertiesAnnotation"`
	Error                     *apiError         `json:"error"`
}

type labelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type textAnnotation struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type faceAnnotation struct {
	DetectionConfidence float64 `json:"detectionConfidence"`
	JoyLikelihood       string  `json:"joyLikelihood"`
	SurpriseLikelihood  string  `json:"surpriseLikelihood"`
	AngerLikelihood     string  `json:"angerLikelihood"`
	SorrowLikelihood    string  `json:"sorrowLikelihood"`
}

type safeSearchResult struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
	Spoof    string `json:"spoof"`
	Medical  string `json:"medical"`
	Racy     string `json:"racy"`
}

type imageProperties struct {
	DominantColors dominantColors `json:"dominantColors"`
}

type dominantColors struct {
	Colors []colorInfo `json:"colors"`
}

type colorInfo struct {
	Color         rgbColor `json:"color"`
	Score         float64  `json:"score"`
	PixelFraction float64  `json:"pixelFraction"`
}

type rgbColor struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

func (c *GoogleClient) DetectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	resp, err := c.annotate(ctx, image, "LABEL_DETECTION")
	if err != nil {
		return nil, err
	}
	labels := make([]model.Label, 0, len(resp.LabelAnnotations))
	for _, l := range resp.LabelAnnotations {
		labels = append(labels, model.Label{Description: l.Description, Score: l.Score})
	}
	return labels, nil
}

func (c *GoogleClient) DetectText(ctx context.Context, image []byte) (string, []model.TextFragment, error) {
	resp, err := c.annotate(ctx, image, "TEXT_DETECTION")
	if err != nil {
		return "", nil, err
	}
	if len(resp.TextAnnotations) == 0 {
		return "", []model.TextFragment{}, nil
	}
	// The first annotation is the whole recognized text; the rest are the
	// individual fragments.
	full := resp.TextAnnotations[0].Description
	fragments := make([]model.TextFragment, 0, len(resp.TextAnnotations)-1)
	for _, t := range resp.TextAnnotations[1:] {
		if strings.TrimSpace(t.Description) == "" {
			continue
		}
		fragments = append(fragments, model.TextFragment{Text: t.Description, Confidence: t.Confidence})
	}
	return full, fragments, nil
}

func (c *GoogleClient) DetectFaces(ctx context.Context, image []byte) ([]model.Face, error) {
	resp, err := c.annotate(ctx, image, "FACE_DETECTION")
	if err != nil {
		return nil, err
	}
	faces := make([]model.Face, 0, len(resp.FaceAnnotations))
	for _, f := range resp.FaceAnnotations {
		faces = append(faces, model.Face{
			Confidence: f.DetectionConfidence,
			Joy:        model.LikelihoodOrdinal(f.JoyLikelihood),
			Surprise:   model.LikelihoodOrdinal(f.SurpriseLikelihood),
			Anger:      model.LikelihoodOrdinal(f.AngerLikelihood),
			Sorrow:     model.LikelihoodOrdinal(f.SorrowLikelihood),
		})
	}
	return faces, nil
}

func (c *GoogleClient) DetectSafeSearch(ctx context.Context, image []byte) (model.SafeSearch, error) {
	resp, err := c.annotate(ctx, image, "SAFE_SEARCH_DETECTION")
	if err != nil {
		return model.SafeSearch{}, err
	}
	if resp.SafeSearchAnnotation == nil {
		return model.SafeSearch{}, fmt.Errorf("response missing safeSearchAnnotation")
	}
	a := resp.SafeSearchAnnotation
	return model.SafeSearch{
		Adult:    model.NormalizeLikelihood(a.Adult),
		Violence: model.NormalizeLikelihood(a.Violence),
		Spoof:    model.NormalizeLikelihood(a.Spoof),
		Medical:  model.NormalizeLikelihood(a.Medical),
		Racy:     model.NormalizeLikelihood(a.Racy),
	}, nil
}

func (c *GoogleClient) DetectColors(ctx context.Context, image []byte) ([]model.DominantColor, error) {
	resp, err := c.annotate(ctx, image, "IMAGE_PROPERTIES")
	if err != nil {
		return nil, err
	}
	if resp.ImagePropertiesAnnotation == nil {
		return []model.DominantColor{}, nil
	}
	src := resp.ImagePropertiesAnnotation.DominantColors.Colors
	colors := make([]model.DominantColor, 0, len(src))
	for _, col := range src {
		colors = append(colors, model.DominantColor{
			RGB:           model.RGB{R: col.Color.Red, G: col.Color.Green, B: col.Color.Blue},
			Score:         col.Score,
			PixelFraction: col.PixelFraction,
		})
	}
	return colors, nil
}

func (c *GoogleClient) annotate(ctx context.Context, image []byte, featureType string) (*annotateResponse, error) {
	reqBody := annotateRequest{
		Requests: []imageRequest{
			{
				Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
				Features: []feature{{Type: featureType, MaxResults: defaultMaxResults}},
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint
	if c.apiKey != "" {
		url = fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope annotateEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("detector backend error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if len(envelope.Responses) == 0 {
		return nil, fmt.Errorf("empty response from detector backend")
	}
	annotated := envelope.Responses[0]
	if annotated.Error != nil {
		return nil, fmt.Errorf("detector backend error %d: %s", annotated.Error.Code, annotated.Error.Message)
	}
	return &annotated, nil
}
