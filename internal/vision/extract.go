// Package vision extracts structured product data from label photos by
// calling an OpenAI-compatible vision chat endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/models"
)

const systemPrompt = `Eres un asistente que extrae información de etiquetas de productos japonesas y la devuelve en formato JSON estructurado.
Analiza la imagen y extrae la información traduciendo TODO al español:
- productName: nombre del producto traducido al español
- price: precio (con símbolo ¥ si está presente)
- brand: marca/fabricante
- model: modelo/número de modelo
- condition: estado/condición traducido (nuevo, usado, reacondicionado, etc.)
- warranty: período de garantía traducido
- features: características principales traducidas al español (array)

IMPORTANTE: Todos los valores deben estar en español, excepto números de modelo y precios.
Responde SOLO con un JSON válido, sin texto adicional.`

// Extractor calls the configured vision model. A zero API key disables the
// service; callers should check Enabled before use.
type Extractor struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewExtractor creates an extractor for the given endpoint and model.
func NewExtractor(baseURL, apiKey, model string) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Enabled reports whether an API key is configured.
func (e *Extractor) Enabled() bool { return e.apiKey != "" }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_completion_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the image to the vision model and returns the structured
// fields it read off the label. When the model answers with something that
// is not valid JSON, the raw text is preserved in RawTranslation rather than
// failing the request.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (models.ExtractedProduct, error) {
	if !e.Enabled() {
		return models.ExtractedProduct{}, fmt.Errorf("vision: no API key configured: %w", apperr.ErrValidation)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	payload := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				{Type: "text", Text: "Extrae la información de esta etiqueta de producto japonés y devuélvela en formato JSON estructurado."},
			}},
		},
		Temperature:    0.3,
		MaxTokens:      2048,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("vision: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("vision: extract: %v: %w", err, apperr.ErrTransport)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.ExtractedProduct{}, fmt.Errorf("vision: extract: status %d: %w", resp.StatusCode, apperr.ErrTransport)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("vision: decode response: %v: %w", err, apperr.ErrTransport)
	}
	if len(parsed.Choices) == 0 {
		return models.ExtractedProduct{}, fmt.Errorf("vision: empty completion: %w", apperr.ErrTransport)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	var extracted models.ExtractedProduct
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		extracted = models.ExtractedProduct{RawTranslation: content}
	}
	return extracted, nil
}

// FormatExtracted renders the structured fields as display text for the
// description textarea, one labeled line per present field.
func FormatExtracted(p models.ExtractedProduct) string {
	var lines []string
	if p.ProductName != "" {
		lines = append(lines, "Producto: "+p.ProductName)
	}
	if p.Brand != "" {
		lines = append(lines, "Marca: "+p.Brand)
	}
	if p.Model != "" {
		lines = append(lines, "Modelo: "+p.Model)
	}
	if p.Price != "" {
		lines = append(lines, "Precio: "+p.Price)
	}
	if p.Condition != "" {
		lines = append(lines, "Estado: "+p.Condition)
	}
	if p.Warranty != "" {
		lines = append(lines, "Garantía: "+p.Warranty)
	}
	if len(p.Features) > 0 {
		lines = append(lines, "Características:")
		for _, f := range p.Features {
			lines = append(lines, "  • "+f)
		}
	}
	if len(lines) == 0 && p.RawTranslation != "" {
		lines = append(lines, p.RawTranslation)
	}
	return strings.Join(lines, "\n")
}
