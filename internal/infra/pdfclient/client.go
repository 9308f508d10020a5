package pdfclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/inkdesk/inkdesk/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client talks to the external PDF rendering engine. The engine is a black
// box that turns canonical section text plus signature images into a binary
// document; it is only ever called after the domain state is committed.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Client {
	timeout := time.Duration(cfg.PDFEngine.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: cfg.PDFEngine.BaseURL,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: log,
	}
}

// RenderRequest is the engine's input contract: ordered titled sections and
// the signature blocks to stamp onto the acceptance page.
type RenderRequest struct {
	Title      string           `json:"title"`
	Sections   []RenderSection  `json:"sections"`
	Signatures []SignatureStamp `json:"signatures,omitempty"`
}

type RenderSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type SignatureStamp struct {
	Role       string `json:"role"`
	SignerName string `json:"signer_name"`
	SignedAt   string `json:"signed_at"`
	ImagePNG   []byte `json:"image_png,omitempty"`
}

// Render posts the document to the engine and returns the PDF bytes.
func (c *Client) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/render", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf engine returned status %d: %s", resp.StatusCode, string(pdf))
	}
	return pdf, nil
}
