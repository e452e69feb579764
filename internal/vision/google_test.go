package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmcosta/snapsight/internal/model"
)

// annotateServer answers images:annotate with a canned response per feature
// type, mimicking the detector backend.
func annotateServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)
		require.Len(t, req.Requests[0].Features, 1)
		feature := req.Requests[0].Features[0].Type
		body, ok := responses[feature]
		if !ok {
			http.Error(w, `{"error":{"code":500,"message":"unexpected feature"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestGoogleClientDetectLabels(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"LABEL_DETECTION": `{"responses":[{"labelAnnotations":[
			{"description":"cat","score":0.98},
			{"description":"whiskers","score":0.77}
		]}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	labels, err := client.DetectLabels(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, model.Label{Description: "cat", Score: 0.98}, labels[0])
	assert.Equal(t, model.Label{Description: "whiskers", Score: 0.77}, labels[1])
}

func TestGoogleClientDetectText(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"TEXT_DETECTION": `{"responses":[{"textAnnotations":[
			{"description":"STOP AHEAD"},
			{"description":"STOP","confidence":0.95},
			{"description":"  "},
			{"description":"AHEAD","confidence":0.91}
		]}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	full, fragments, err := client.DetectText(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "STOP AHEAD", full)
	// The first annotation is the full text, blank fragments are skipped.
	require.Len(t, fragments, 2)
	assert.Equal(t, model.TextFragment{Text: "STOP", Confidence: 0.95}, fragments[0])
	assert.Equal(t, model.TextFragment{Text: "AHEAD", Confidence: 0.91}, fragments[1])
}

func TestGoogleClientDetectTextEmpty(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"TEXT_DETECTION": `{"responses":[{}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	full, fragments, err := client.DetectText(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "", full)
	assert.Empty(t, fragments)
}

func TestGoogleClientDetectFaces(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"FACE_DETECTION": `{"responses":[{"faceAnnotations":[
			{"detectionConfidence":0.93,"joyLikelihood":"VERY_LIKELY","surpriseLikelihood":"UNLIKELY","angerLikelihood":"VERY_UNLIKELY","sorrowLikelihood":"Likelihood.POSSIBLE"}
		]}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	faces, err := client.DetectFaces(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, model.Face{Confidence: 0.93, Joy: 5, Surprise: 2, Anger: 1, Sorrow: 3}, faces[0])
}

func TestGoogleClientDetectSafeSearchNormalizes(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"SAFE_SEARCH_DETECTION": `{"responses":[{"safeSearchAnnotation":{
			"adult":"Likelihood.VERY_UNLIKELY",
			"violence":"UNLIKELY",
			"spoof":"POSSIBLE",
			"medical":"Likelihood.LIKELY",
			"racy":"VERY_LIKELY"
		}}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	safe, err := client.DetectSafeSearch(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, model.SafeSearch{
		Adult:    "VERY_UNLIKELY",
		Violence: "UNLIKELY",
		Spoof:    "POSSIBLE",
		Medical:  "LIKELY",
		Racy:     "VERY_LIKELY",
	}, safe)
}

func TestGoogleClientDetectColors(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"IMAGE_PROPERTIES": `{"responses":[{"imagePropertiesAnnotation":{"dominantColors":{"colors":[
			{"color":{"red":250,"green":12,"blue":3},"score":0.42,"pixelFraction":0.3}
		]}}}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	colors, err := client.DetectColors(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, colors, 1)
	assert.Equal(t, model.DominantColor{
		RGB:           model.RGB{R: 250, G: 12, B: 3},
		Score:         0.42,
		PixelFraction: 0.3,
	}, colors[0])
}

func TestGoogleClientBackendError(t *testing.T) {
	srv := annotateServer(t, map[string]string{
		"LABEL_DETECTION": `{"responses":[{"error":{"code":7,"message":"permission denied"}}]}`,
	})
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	_, err := client.DetectLabels(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestGoogleClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewGoogleClient("test-key", srv.URL)
	_, err := client.DetectFaces(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
