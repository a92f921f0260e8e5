package llm

import (
	"context"
	"fmt"
	"os"

	"adforge/internal/config"

	"google.golang.org/genai"
)

// Gemini adapts the google.golang.org/genai SDK to the TextGenerator and
// MediaGenerator capability interfaces. There is no package-global client:
// callers construct one at startup and pass it down explicitly.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini adapter. The API key is taken from the config,
// falling back to the GEMINI_API_KEY / GOOGLE_GEMINI_API_KEY / GOOGLE_AI_API_KEY
// environment variables.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"} {
			if apiKey = os.Getenv(env); apiKey != "" {
				break
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY or ai.gemini.api_key in the config file")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client}, nil
}

// GenerateContent implements TextGenerator.
func (g *Gemini) GenerateContent(ctx context.Context, model, prompt, system string, temperature float32) (*Response, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  genai.RoleUser,
	}}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	out := &Response{Text: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			converted := Part{Text: part.Text}
			if part.InlineData != nil {
				converted.InlineData = part.InlineData.Data
			}
			out.Parts = append(out.Parts, converted)
		}
	}
	return out, nil
}

// GenerateImage implements MediaGenerator.
func (g *Gemini) GenerateImage(ctx context.Context, model, prompt string) (*MediaResult, error) {
	resp, err := g.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrNoMedia
	}

	image := resp.GeneratedImages[0].Image
	mimeType := image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &MediaResult{Bytes: image.ImageBytes, MIMEType: mimeType}, nil
}

// videoHandle wraps the SDK operation so NormalizeHandle can read its name.
type videoHandle struct {
	op *genai.GenerateVideosOperation
}

func (h videoHandle) OperationName() string {
	if h.op == nil {
		return ""
	}
	return h.op.Name
}

// StartVideo implements MediaGenerator. The returned handle is opaque to
// callers; the poller extracts the operation name through NormalizeHandle.
func (g *Gemini) StartVideo(ctx context.Context, model, prompt string, durationSeconds int32) (any, error) {
	op, err := g.client.Models.GenerateVideos(ctx, model, prompt, nil, &genai.GenerateVideosConfig{
		DurationSeconds: genai.Ptr(durationSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}
	if op == nil {
		return nil, fmt.Errorf("video model did not return an operation handle")
	}
	return videoHandle{op: op}, nil
}

// GetOperation implements MediaGenerator. When a canonical name is known the
// lookup is made by name; otherwise the original handle is replayed.
func (g *Gemini) GetOperation(ctx context.Context, handle any, name string) (*OperationStatus, error) {
	var op *genai.GenerateVideosOperation
	switch {
	case name != "":
		op = &genai.GenerateVideosOperation{Name: name}
	default:
		wrapped, ok := handle.(videoHandle)
		if !ok || wrapped.op == nil {
			if extracted := NormalizeHandle(handle); extracted != "" {
				op = &genai.GenerateVideosOperation{Name: extracted}
				break
			}
			return nil, fmt.Errorf("unrecognized operation handle %T", handle)
		}
		op = wrapped.op
	}

	result, err := g.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query video operation: %w", err)
	}

	status := &OperationStatus{Name: result.Name, Done: result.Done}
	if result.Done && result.Response != nil && len(result.Response.GeneratedVideos) > 0 {
		video := result.Response.GeneratedVideos[0].Video
		if video != nil && len(video.VideoBytes) > 0 {
			mimeType := video.MIMEType
			if mimeType == "" {
				mimeType = "video/mp4"
			}
			status.Media = &MediaResult{Bytes: video.VideoBytes, MIMEType: mimeType}
		}
	}
	return status, nil
}
