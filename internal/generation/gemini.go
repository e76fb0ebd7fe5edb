package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/observability"
	"github.com/bluedream1831-collab/threads/internal/prompt"
)

// Config holds the provider settings for the Gemini client.
type Config struct {
	APIKey          string
	ImageModel      string
	VideoModel      string
	VideoResolution string
	VideoAspect     string
	PollInterval    time.Duration
	MaxPolls        int
}

// Gemini implements Provider on google.golang.org/genai. It is constructed
// once at startup and injected everywhere a generation happens.
type Gemini struct {
	client *genai.Client
	cfg    Config
	blobs  BlobSink
	http   *http.Client

	// sleep is injectable so tests drive the video poll loop without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGemini builds the provider client. The API key is required; its
// absence is surfaced as an auth error so callers can route the user to the
// credential flow instead of crashing.
func NewGemini(ctx context.Context, cfg Config, blobs BlobSink) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, models.NewAuthError("Provider API key is not configured", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, models.NewProviderError("failed to create provider client", err)
	}

	return &Gemini{
		client: client,
		cfg:    cfg,
		blobs:  blobs,
		http:   &http.Client{Timeout: 60 * time.Second},
		sleep:  sleepWithContext,
	}, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GenerateText sends the prompt with its declared response schema and
// strictly parses the reply. Zero parsed items is an empty slice, not an
// error.
func (g *Gemini) GenerateText(ctx context.Context, req prompt.Request) ([]models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "provider.generate_text")
	defer span.End()
	span.AddAttributes(attribute.String("model", req.Model))

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Instruction),
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			ResponseSchema:    req.Schema,
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
			Temperature:       genai.Ptr(req.Temperature),
		})
	observability.ObserveProviderCall("text", start, err)
	if err != nil {
		span.SetError(err)
		return nil, classifyProviderError(err)
	}

	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return []models.Post{}, nil
	}

	posts, err := parsePosts(text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return posts, nil
}

// parsePosts validates the provider payload against the declared contract:
// an array of objects with a non-empty content string and a tags array.
func parsePosts(payload string) ([]models.Post, error) {
	var posts []models.Post
	if err := json.Unmarshal([]byte(payload), &posts); err != nil {
		return nil, models.NewSchemaMismatchError(err)
	}
	for i, p := range posts {
		if p.Content == "" {
			return nil, models.NewSchemaMismatchError(
				fmt.Errorf("item %d is missing required field content", i))
		}
		if p.Tags == nil {
			return nil, models.NewSchemaMismatchError(
				fmt.Errorf("item %d is missing required field tags", i))
		}
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// GenerateImage performs the single synchronous call for every static style
// and decodes the first inline-data part into a data URI. A response with no
// inline data yields (nil, nil).
func (g *Gemini) GenerateImage(ctx context.Context, enriched string) (*Visual, error) {
	span, ctx := observability.NewSpan(ctx, "provider.generate_image")
	defer span.End()

	start := time.Now()
	// The image model supports neither response schemas nor MIME overrides.
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ImageModel, genai.Text(enriched), nil)
	observability.ObserveProviderCall("image", start, err)
	if err != nil {
		span.SetError(err)
		return nil, classifyProviderError(err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			uri := fmt.Sprintf("data:%s;base64,%s",
				part.InlineData.MIMEType,
				base64.StdEncoding.EncodeToString(part.InlineData.Data))
			return &Visual{Ref: uri, MIME: part.InlineData.MIMEType, Kind: "image"}, nil
		}
	}
	return nil, nil
}

// videoConfig declares the job parameters. Exactly one video per request;
// the card has one slot.
func (g *Gemini) videoConfig() *genai.GenerateVideosConfig {
	return &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     g.cfg.VideoResolution,
		AspectRatio:    g.cfg.VideoAspect,
	}
}

// GenerateVideo submits the long-running job and polls it on a fixed
// interval, bounded by MaxPolls so an abandoned job cannot outlive its card
// forever. The finished binary is fetched with the credential appended
// server-side and exposed through the blob sink, so the keyed URL never
// reaches a client.
func (g *Gemini) GenerateVideo(ctx context.Context, enriched string) (*Visual, error) {
	span, ctx := observability.NewSpan(ctx, "provider.generate_video")
	defer span.End()
	observability.ActiveVideoPolls.Inc()
	defer observability.ActiveVideoPolls.Dec()

	start := time.Now()
	op, err := g.client.Models.GenerateVideos(ctx, g.cfg.VideoModel, enriched, nil, g.videoConfig())
	if err != nil {
		observability.ObserveProviderCall("video", start, err)
		span.SetError(err)
		return nil, classifyProviderError(err)
	}

	for polls := 0; !op.Done; polls++ {
		if polls >= g.cfg.MaxPolls {
			err := models.NewProviderError("video generation did not finish in time", nil)
			observability.ObserveProviderCall("video", start, err)
			span.SetError(err)
			return nil, err
		}
		if err := g.sleep(ctx, g.cfg.PollInterval); err != nil {
			return nil, models.NewProviderError("video generation cancelled", err)
		}
		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			observability.ObserveProviderCall("video", start, err)
			span.SetError(err)
			return nil, classifyProviderError(err)
		}
	}
	observability.ObserveProviderCall("video", start, nil)

	uri := videoURI(op)
	if uri == "" {
		return nil, nil
	}

	data, mime, err := g.fetchVideo(ctx, uri)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ref, err := g.blobs.Put(ctx, data, mime)
	if err != nil {
		span.SetError(err)
		return nil, models.NewProviderError("failed to store generated video", err)
	}
	return &Visual{Ref: ref, MIME: mime, Kind: "video"}, nil
}

func videoURI(op *genai.GenerateVideosOperation) string {
	if op == nil || op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return ""
	}
	v := op.Response.GeneratedVideos[0]
	if v == nil || v.Video == nil {
		return ""
	}
	return v.Video.URI
}

// fetchVideo downloads the finished binary. The credential rides as a query
// parameter on the result URI, which is why the fetch happens here and the
// bytes are re-served from the blob store.
func (g *Gemini) fetchVideo(ctx context.Context, uri string) ([]byte, string, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+g.cfg.APIKey, nil)
	if err != nil {
		return nil, "", models.NewProviderError("failed to build video fetch request", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, "", models.NewProviderError("failed to download generated video", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", models.NewProviderError(
			fmt.Sprintf("video download returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", models.NewProviderError("failed to read generated video", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "video/mp4"
	}
	return data, mime, nil
}

// classifyProviderError maps SDK failures onto the application taxonomy.
// The provider reports a missing or revoked API key as an entity-not-found
// condition, which is why "not found" lands in the auth bucket.
func classifyProviderError(err error) *models.AppError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "unauthenticated"):
		return models.NewAuthError("Provider rejected the configured credential", err)
	default:
		return models.NewProviderError("Provider request failed", err)
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
