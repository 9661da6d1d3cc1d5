package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/regulomics/v2gscore/internal/finemap"
)

// Client talks to the external regulatory-prediction API. The API is an
// external collaborator: the client batches variants per request and
// retries a bounded number of times, but implements no pipeline logic.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// Default request shaping for the prediction API.
const (
	DefaultBatchSize  = 25
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 120 * time.Second
)

// NewClient creates a prediction API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		batchSize:  DefaultBatchSize,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     zap.NewNop(),
	}
}

// SetBatchSize overrides the number of variants per request.
func (c *Client) SetBatchSize(n int) {
	if n > 0 {
		c.batchSize = n
	}
}

// SetLogger sets the logger for request diagnostics.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// scoreRequest is the JSON body of one batch request.
type scoreRequest struct {
	Variants []scoreRequestVariant `json:"variants"`
}

type scoreRequestVariant struct {
	ID    string `json:"id"`
	Chrom string `json:"chromosome"`
	Pos   int64  `json:"position"`
}

// scoreResponse is the JSON body of one batch response.
type scoreResponse struct {
	Results []scoreResult `json:"results"`
}

type scoreResult struct {
	VariantID string             `json:"variant_id"`
	GeneID    string             `json:"gene_id"`
	Scores    map[string]float64 `json:"scores"` // modality name -> raw score
}

// ScoreVariants queries predictions for all variants in bounded batches
// and merges the responses into the given score set. A batch that still
// fails after the retry budget aborts the call; partial results already
// merged stay in the set so a re-run can resume from the persisted cache.
func (c *Client) ScoreVariants(variants []*finemap.Variant, set *ScoreSet) error {
	for start := 0; start < len(variants); start += c.batchSize {
		end := start + c.batchSize
		if end > len(variants) {
			end = len(variants)
		}

		if err := c.scoreBatch(variants[start:end], set); err != nil {
			return fmt.Errorf("score variants %d-%d: %w", start, end-1, err)
		}

		c.logger.Info("scored variant batch",
			zap.Int("from", start),
			zap.Int("to", end-1),
			zap.Int("cells", set.Len()))
	}
	return nil
}

func (c *Client) scoreBatch(batch []*finemap.Variant, set *ScoreSet) error {
	req := scoreRequest{Variants: make([]scoreRequestVariant, len(batch))}
	for i, v := range batch {
		req.Variants[i] = scoreRequestVariant{
			ID:    v.Key(),
			Chrom: v.NormalizeChrom(),
			Pos:   v.Pos,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying prediction request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			time.Sleep(c.retryDelay)
		}

		resp, err := c.doRequest(body)
		if err != nil {
			lastErr = err
			continue
		}

		for _, r := range resp.Results {
			for modality, raw := range r.Scores {
				set.Set(r.VariantID, r.GeneID, normalizeModality(modality), raw)
			}
		}
		return nil
	}

	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) doRequest(body []byte) (*scoreResponse, error) {
	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/score_variants", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prediction API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prediction API error %d: %s", resp.StatusCode, string(msg))
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode prediction response: %w", err)
	}
	return &decoded, nil
}
