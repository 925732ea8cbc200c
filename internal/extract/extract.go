// Package extract reads trade details from broker screenshots with a vision
// model and merges them into a trade draft.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/journal"
	"trading-journal/internal/llm"
	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// MaxImageSize is the largest screenshot accepted.
const MaxImageSize = 10 << 20

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

const systemPrompt = `You read trading platform screenshots and return one JSON object with these keys:
"symbol" (ticker, e.g. BTCUSDT), "date" (YYYY-MM-DD close date),
"entryPrice" (number), "exitPrice" (number),
"pnlAmountValue" (the absolute profit or loss amount, number),
"resultType" ("Profit" or "Loss"), "tradeType" ("Long" or "Short"),
"currency" (3-letter code), "currencySymbol" (e.g. $, ₹, €, £),
"note" (brief summary of the trade).
Omit keys you cannot read. Never invent values.`

const userPrompt = "Carefully extract trading data from this screenshot. Find the Symbol, Entry Price, Exit Price, " +
	"Net Profit/Loss amount, Direction (Long/Short), Result (Profit/Loss), and the Currency Symbol (e.g. $, ₹)."

// Extraction is what the model read from a screenshot. Numbers may arrive as
// JSON numbers or strings.
type Extraction struct {
	Symbol         string              `json:"symbol"`
	Date           string              `json:"date"`
	EntryPrice     decimal.NullDecimal `json:"entryPrice"`
	ExitPrice      decimal.NullDecimal `json:"exitPrice"`
	PnLAmountValue decimal.NullDecimal `json:"pnlAmountValue"`
	ResultType     string              `json:"resultType"`
	TradeType      string              `json:"tradeType"`
	Currency       string              `json:"currency"`
	CurrencySymbol string              `json:"currencySymbol"`
	Note           string              `json:"note"`
}

// Extractor reads a trade from an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*Extraction, error)
}

// OpenAIExtractor extracts trades with an OpenAI vision model.
type OpenAIExtractor struct {
	client llm.VisionCompleter
	retry  utils.RetryConfig
	logger zerolog.Logger
}

// NewOpenAIExtractor creates an extractor. Rate-limit and server errors are
// retried with exponential backoff up to maxRetries times.
func NewOpenAIExtractor(client llm.VisionCompleter, maxRetries int, logger zerolog.Logger) *OpenAIExtractor {
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = maxRetries + 1
	retry.Retryable = isRetryable
	return &OpenAIExtractor{
		client: client,
		retry:  retry,
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// Extract sends the screenshot to the model and parses its answer.
func (e *OpenAIExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*Extraction, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if len(image) == 0 {
		return nil, apperrors.NewValidationError("image", "", "empty image")
	}
	if len(image) > MaxImageSize {
		return nil, apperrors.NewValidationError("image", len(image), "image too large")
	}
	if !supportedTypes[mimeType] {
		return nil, apperrors.NewValidationError("mimeType", mimeType, "unsupported image type")
	}

	attempt := 0
	raw, err := utils.RetryWithResult(ctx, e.retry, func() (string, error) {
		attempt++
		out, err := e.client.CompleteWithImage(ctx, systemPrompt, userPrompt, image, mimeType)
		if err != nil {
			e.logger.Debug().Err(err).Int("attempt", attempt).Msg("Extraction request failed")
		}
		return out, err
	})
	if err != nil {
		return nil, apperrors.NewExtractionError("request", err)
	}

	ext, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	e.logger.Info().Str("symbol", ext.Symbol).Int("attempts", attempt).Msg("Extracted trade from screenshot")
	return ext, nil
}

// Parse decodes a model answer. Markdown code fences around the JSON are
// tolerated.
func Parse(raw string) (*Extraction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.NewExtractionError("parse", llm.ErrNoResponse)
	}

	var ext Extraction
	if err := json.Unmarshal([]byte(raw), &ext); err != nil {
		return nil, apperrors.NewExtractionError("parse", err)
	}
	return &ext, nil
}

// isRetryable retries rate limits, server errors and transport failures.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// MergeDraft fills draft with what was extracted. Fields the model did not
// read keep their draft values; direction and result default to Long and
// Profit.
func MergeDraft(draft journal.TradeInput, ext *Extraction) journal.TradeInput {
	if ext == nil {
		return draft
	}

	if s := strings.ToUpper(strings.TrimSpace(ext.Symbol)); s != "" {
		draft.Symbol = s
	}
	if d, ok := models.ParseDate(ext.Date); ok {
		draft.Date = d.String()
	}
	if ext.EntryPrice.Valid {
		draft.EntryPrice = ext.EntryPrice.Decimal.String()
	}
	if ext.ExitPrice.Valid {
		draft.ExitPrice = ext.ExitPrice.Decimal.String()
	}
	if ext.PnLAmountValue.Valid {
		draft.PnLAmount = ext.PnLAmountValue.Decimal.Abs().String()
	}

	if strings.EqualFold(ext.TradeType, string(models.DirectionShort)) {
		draft.Direction = string(models.DirectionShort)
	} else {
		draft.Direction = string(models.DirectionLong)
	}
	if strings.EqualFold(ext.ResultType, string(models.ResultLoss)) {
		draft.ResultType = string(models.ResultLoss)
	} else {
		draft.ResultType = string(models.ResultProfit)
	}

	if code := strings.ToUpper(strings.TrimSpace(ext.Currency)); utils.KnownCurrency(code) {
		draft.Currency = code
	} else if code, ok := utils.CurrencyForSymbol(ext.CurrencySymbol); ok {
		draft.Currency = code
	}

	if n := strings.TrimSpace(ext.Note); n != "" {
		draft.Note = n
	}
	return draft
}
