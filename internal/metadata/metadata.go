// Package metadata reads the municipality and item count out of an edital
// and asks the completer for the bidding checklist.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/extractor"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/pkg/textnorm"
)

const (
	metadataPromptChars = 4000
	biddingPromptChars  = 15000
	biddingMaxTokens    = 1500
	metadataMaxTokens   = 200
)

var (
	municipalityRe = regexp.MustCompile(`(?i)(?:PREFEITURA|MUNICÍPIO)\s+(?:DE|DO|DA)\s+([A-ZÀ-Ú\s]+?)(?:/[A-Z]{2}|\s+CNPJ|\s+-|\n)`)
	itemRe         = regexp.MustCompile(`(?:Item|ITEM)\s+(\d+)[:.)-]`)
	namePrefixRe   = regexp.MustCompile(`^(prefeitura|municipio)\s+(de|do|da)\s+`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

var biddingChecklist = []string{
	"Validade da proposta",
	"Prazo de entrega",
	"Cidade",
	"Estado",
	"Horário de abertura da licitação",
	"Número de casas decimais para proposta",
	"Documentações necessárias para habilitação",
	"Objeto da licitação (qual é o escopo ou finalidade da contratação?)",
	"Modalidade da licitação (concorrência, tomada de preços, convite etc.)",
	"Valor estimado para a contratação",
	"Critérios de julgamento (menor preço, técnica e preço, melhor técnica etc.)",
	"Condições de pagamento",
	"Garantias exigidas (garantia de proposta, garantia contratual, etc.)",
	"Requisitos técnicos e de qualificação (experiência mínima, comprovação de capacidade, etc.)",
	"Cronograma do processo (prazos para submissão de propostas, impugnações, recursos e execução)",
	"Penalidades e sanções em caso de descumprimento contratual",
	"Critérios adicionais para habilitação (regularidade fiscal, qualificação jurídica, comprovação de capacidade técnica, etc.)",
	"Critérios para desclassificação ou penalização de propostas",
}

type Metadata struct {
	Municipality string `json:"municipio"`
	ItemCount    int    `json:"number_itens"`
}

type Extractor struct {
	completer ai.ICompleter
	accepted  map[string]bool
	names     []string
}

// New builds an extractor. completer may be nil, which disables the LLM
// fallback and BiddingInfo.
func New(completer ai.ICompleter) *Extractor {
	e := &Extractor{completer: completer, accepted: make(map[string]bool)}
	for _, m := range extractor.All() {
		e.accepted[string(m)] = true
		e.names = append(e.names, string(m))
	}
	return e
}

// NormalizeMunicipality turns "Município de São Roque" into "sao_roque".
func NormalizeMunicipality(name string) string {
	n := strings.ToLower(textnorm.StripAccents(strings.TrimSpace(name)))
	n = namePrefixRe.ReplaceAllString(n, "")
	n = nonAlnumRe.ReplaceAllString(n, "_")
	return strings.Trim(n, "_")
}

func (e *Extractor) acceptedName(raw string) string {
	n := NormalizeMunicipality(raw)
	if e.accepted[n] {
		return n
	}
	return ""
}

// Extract never fails. Fields it cannot find are left empty.
func (e *Extractor) Extract(ctx context.Context, content string) *Metadata {
	md := &Metadata{}
	if m := municipalityRe.FindStringSubmatch(content); m != nil {
		md.Municipality = e.acceptedName(m[1])
	}
	md.ItemCount = countItems(content)
	if e.completer != nil && (md.Municipality == "" || md.ItemCount == 0) {
		e.fillFromLLM(ctx, content, md)
	}
	logutil.GetLogger(ctx).Info("metadata extracted",
		zap.String("municipality", md.Municipality),
		zap.Int("item_count", md.ItemCount),
	)
	return md
}

func countItems(content string) int {
	seen := make(map[string]struct{})
	for _, m := range itemRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = struct{}{}
	}
	return len(seen)
}

type llmMetadata struct {
	Municipality string          `json:"municipio"`
	ItemCount    json.RawMessage `json:"number_itens"`
}

func (e *Extractor) fillFromLLM(ctx context.Context, content string, md *Metadata) {
	logger := logutil.GetLogger(ctx)
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(
			"Extraia as seguintes informações do documento de licitação fornecido: 1) Nome do município (apenas aceite: %s), 2) Número total de itens a serem licitados. Retorne apenas um JSON com as chaves 'municipio' e 'number_itens'.",
			strings.Join(e.names, ", "))},
		{Role: ai.RoleUser, Content: "Documento: " + truncateRunes(content, metadataPromptChars)},
	}
	out, err := e.completer.Complete(ctx, messages, metadataMaxTokens)
	if err != nil {
		logger.Warn("metadata llm fallback failed", zap.Error(err))
		return
	}
	var got llmMetadata
	if err := json.Unmarshal([]byte(extractJSONObject(out)), &got); err != nil {
		logger.Warn("metadata llm returned invalid json", zap.Error(err))
		return
	}
	if md.Municipality == "" {
		md.Municipality = e.acceptedName(got.Municipality)
	}
	if md.ItemCount == 0 {
		md.ItemCount = parseCount(got.ItemCount)
	}
}

// parseCount accepts 12 or "12".
func parseCount(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// BiddingInfo asks the completer for the bidding checklist and returns the
// JSON object it produced.
func (e *Extractor) BiddingInfo(ctx context.Context, content string) (map[string]interface{}, error) {
	if e.completer == nil {
		return nil, fmt.Errorf("bidding info needs a completer: %w", ai.ErrUnavailable)
	}
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: "Você é um especialista em licitações. Extraia as seguintes informações do documento fornecido:\n" +
			strings.Join(biddingChecklist, "\n") +
			"\n\nRetorne as informações em formato JSON, com a informação exata encontrada no documento."},
		{Role: ai.RoleUser, Content: "Documento de licitação:\n" + truncateRunes(content, biddingPromptChars)},
	}
	out, err := e.completer.Complete(ctx, messages, biddingMaxTokens)
	if err != nil {
		return nil, err
	}
	info := make(map[string]interface{})
	if err := json.Unmarshal([]byte(extractJSONObject(out)), &info); err != nil {
		return nil, fmt.Errorf("parse bidding info: %w: %w", err, appErr.ErrExternalProvider)
	}
	return info, nil
}

func extractJSONObject(output string) string {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	return clean
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
