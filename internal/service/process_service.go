package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/extractor"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/matcher"
	"github.com/xxxsen/licitarag/internal/metadata"
	"github.com/xxxsen/licitarag/internal/model"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/rag"
	"github.com/xxxsen/licitarag/internal/tableio"
)

const (
	StepUpload     = "pdf_upload"
	StepMetadata   = "metadata_extraction"
	StepEmbeddings = "embeddings_generation"
	StepTable      = "table_extraction"
	StepMatching   = "product_matching"

	OutputCSV  = "csv"
	OutputXLSX = "xlsx"

	genericHint = "generico"
)

type ContentUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type DocumentRecorder interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, docID string) (*model.Document, error)
}

type ProcessDeps struct {
	Uploader   ContentUploader
	Metadata   *metadata.Extractor
	Engine     *rag.Engine
	Dispatcher *extractor.Dispatcher
	Fallback   *extractor.Chain
	Files      filestore.Store
	Matcher    *matcher.Matcher
	Threshold  float64
	Documents  DocumentRecorder
	Signer     *FileSigner
}

type ProcessService struct {
	deps  ProcessDeps
	newID func() string
	now   func() time.Time
}

func NewProcessService(deps ProcessDeps) *ProcessService {
	if deps.Threshold == 0 {
		deps.Threshold = matcher.DefaultThreshold
	}
	return &ProcessService{deps: deps, newID: uuid.NewString, now: time.Now}
}

type ProcessInput struct {
	Filename string
	Body     io.Reader
	Hint     string
	Output   string
}

type ProcessResult struct {
	DocumentID        string           `json:"document_id"`
	Municipality      string           `json:"municipality"`
	ItemCount         int              `json:"item_count"`
	Extractor         string           `json:"extractor"`
	Tried             []string         `json:"tried,omitempty"`
	RowCount          int              `json:"row_count"`
	CSVURL            string           `json:"csv_url"`
	ExcelURL          string           `json:"excel_url,omitempty"`
	EnhancedCSVURL    string           `json:"enhanced_csv_url,omitempty"`
	MatchedCount      int              `json:"matched_count"`
	TotalDescriptions int              `json:"total_descriptions"`
	CompletedSteps    []string         `json:"completed_steps"`
	Summary           *tableio.Summary `json:"summary"`
}

func ExtractedKey(id string) string {
	return id + "_extracted.csv"
}

func ExtractedExcelKey(id string) string {
	return id + "_extracted.xlsx"
}

func EnhancedKey(id string) string {
	return id + "_enhanced.csv"
}

// Process runs one uploaded edital through upload, metadata, ingest, table
// extraction and product matching. Matching and recording are best effort.
func (s *ProcessService) Process(ctx context.Context, in ProcessInput) (*ProcessResult, error) {
	if in.Body == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, appErr.ErrInvalid
	}
	output := strings.ToLower(strings.TrimSpace(in.Output))
	if output == "" {
		output = OutputCSV
	}
	if output != OutputCSV && output != OutputXLSX {
		return nil, fmt.Errorf("output %q: %w", in.Output, appErr.ErrInvalid)
	}

	id := s.newID()
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", id), zap.String("filename", in.Filename))
	res := &ProcessResult{DocumentID: id, CompletedSteps: []string{}}

	content, err := s.deps.Uploader.Upload(ctx, in.Filename, in.Body)
	if err != nil {
		return nil, err
	}
	res.CompletedSteps = append(res.CompletedSteps, StepUpload)

	md := s.deps.Metadata.Extract(ctx, content)
	res.Municipality = md.Municipality
	res.ItemCount = md.ItemCount
	res.CompletedSteps = append(res.CompletedSteps, StepMetadata)

	err = s.deps.Engine.Ingest(ctx, id, content, map[string]string{
		"filename":     in.Filename,
		"municipality": md.Municipality,
		"item_count":   strconv.Itoa(md.ItemCount),
	})
	if err != nil {
		return nil, err
	}
	res.CompletedSteps = append(res.CompletedSteps, StepEmbeddings)

	extracted, err := s.extractTable(ctx, md.Municipality, in.Hint, content)
	if err != nil {
		return nil, err
	}
	table := extracted.Table
	res.Extractor = extracted.Used
	res.Tried = extracted.Tried
	res.RowCount = table.Len()
	if res.CSVURL, err = s.saveTable(ctx, ExtractedKey(id), table, tableio.EncodeCSV); err != nil {
		return nil, err
	}
	if output == OutputXLSX {
		if res.ExcelURL, err = s.saveTable(ctx, ExtractedExcelKey(id), table, tableio.EncodeExcel); err != nil {
			return nil, err
		}
	}
	res.Summary = tableio.Summarize(table)
	res.CompletedSteps = append(res.CompletedSteps, StepTable)
	logger.Info("table extracted", zap.String("extractor", res.Extractor), zap.Int("rows", res.RowCount))

	if s.deps.Matcher != nil && s.deps.Matcher.Ready() && table.Len() > 0 {
		if err := s.matchProducts(ctx, id, table, res); err != nil {
			logger.Warn("product matching failed", zap.Error(err))
		} else {
			res.CompletedSteps = append(res.CompletedSteps, StepMatching)
		}
	}

	s.record(ctx, in.Filename, res)
	return res, nil
}

// extractTable dispatches on the detected municipality. When that is not
// recognized it uses the caller's format hint, and with no usable hint it
// runs the fallback chain.
func (s *ProcessService) extractTable(ctx context.Context, municipality, hint, content string) (*extractor.ChainResult, error) {
	logger := logutil.GetLogger(ctx)
	if municipality != "" {
		res, err := s.dispatch(municipality, content)
		if err == nil {
			return res, nil
		}
		if !appErr.IsUnrecognizedMunicipality(err) {
			return nil, err
		}
	}
	logger.Warn("municipality not recognized", zap.String("municipality", municipality), zap.String("hint", hint))

	hint = strings.TrimSpace(hint)
	if hint != "" && !strings.EqualFold(hint, genericHint) {
		res, err := s.dispatch(hint, content)
		if err != nil {
			return nil, fmt.Errorf("format %q: %w", hint, err)
		}
		return res, nil
	}
	return s.deps.Fallback.Run(ctx, content)
}

func (s *ProcessService) dispatch(hint, content string) (*extractor.ChainResult, error) {
	m, ex, err := s.deps.Dispatcher.Resolve(hint)
	if err != nil {
		return nil, err
	}
	t, err := ex.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w: %w", m, err, appErr.ErrExtractionFailed)
	}
	return &extractor.ChainResult{Used: string(m), Tried: []string{string(m)}, Table: t}, nil
}

func (s *ProcessService) saveTable(ctx context.Context, key string, t *model.Table, encode func(*model.Table) ([]byte, error)) (string, error) {
	data, err := encode(t)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	if err := filestore.SaveBytes(ctx, s.deps.Files, key, data); err != nil {
		return "", fmt.Errorf("save %s: %w", key, err)
	}
	return s.deps.Signer.URL(key)
}

func (s *ProcessService) matchProducts(ctx context.Context, id string, table *model.Table, res *ProcessResult) error {
	column, err := matcher.FindDescriptionColumn(table)
	if err != nil {
		return err
	}
	enhanced, stats := s.deps.Matcher.MatchTable(ctx, table, column, s.deps.Threshold)
	url, err := s.saveTable(ctx, EnhancedKey(id), enhanced, tableio.EncodeCSV)
	if err != nil {
		return err
	}
	res.EnhancedCSVURL = url
	res.MatchedCount = stats.Matched
	res.TotalDescriptions = stats.Total
	return nil
}

func (s *ProcessService) record(ctx context.Context, filename string, res *ProcessResult) {
	if s.deps.Documents == nil {
		return
	}
	doc := &model.Document{
		ID:                res.DocumentID,
		Filename:          filename,
		Municipality:      res.Municipality,
		ItemCount:         res.ItemCount,
		Extractor:         res.Extractor,
		RowCount:          res.RowCount,
		CSVKey:            ExtractedKey(res.DocumentID),
		MatchedCount:      res.MatchedCount,
		TotalDescriptions: res.TotalDescriptions,
		Ctime:             s.now().Unix(),
	}
	if res.EnhancedCSVURL != "" {
		doc.EnhancedKey = EnhancedKey(res.DocumentID)
	}
	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		logutil.GetLogger(ctx).Warn("record document failed", zap.String("document_id", res.DocumentID), zap.Error(err))
	}
}

func (s *ProcessService) Document(ctx context.Context, id string) (*model.Document, error) {
	if s.deps.Documents == nil {
		return nil, appErr.ErrNotFound
	}
	return s.deps.Documents.GetByID(ctx, id)
}
