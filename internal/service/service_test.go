package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/chunker"
	"github.com/xxxsen/licitarag/internal/config"
	"github.com/xxxsen/licitarag/internal/extractor"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/matcher"
	"github.com/xxxsen/licitarag/internal/metadata"
	"github.com/xxxsen/licitarag/internal/model"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/rag"
	"github.com/xxxsen/licitarag/internal/tableio"
)

const itumbiaraEdital = "PREFEITURA DE ITUMBIARA\n" +
	" 001 \nParacetamol 500mg\nCX\n100\nR$10,00\nR$1000,00\n" +
	" 002 \nDipirona 1g\nAMP\n50\nR$2,00\nR$100,00"

type stubUploader struct {
	content string
	err     error
	got     string
}

func (s *stubUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	s.got = string(data)
	return s.content, s.err
}

type drugEmbedder struct{}

func (drugEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "paracetamol"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "dipirona"):
		return []float32{0, 1, 0}, nil
	}
	return []float32{0, 0, 1}, nil
}

func (drugEmbedder) ModelName() string { return "drug" }

type jsonCompleter struct {
	reply string
}

func (j *jsonCompleter) Complete(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
	return j.reply, nil
}

type memDocuments struct {
	docs map[string]*model.Document
}

func (m *memDocuments) Create(ctx context.Context, doc *model.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id string) (*model.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

type stubExtractor struct {
	rows int
	err  error
}

func (s stubExtractor) Extract(content string) (*model.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	t := model.NewTable("ITEM", "DESCRIÇÃO")
	for i := 0; i < s.rows; i++ {
		t.Append(model.Row{"ITEM": "1", "DESCRIÇÃO": "Paracetamol"})
	}
	return t, nil
}

type fixture struct {
	svc      *ProcessService
	files    filestore.Store
	uploader *stubUploader
	docs     *memDocuments
	signer   *FileSigner
	engine   *rag.Engine
}

func newFixture(t *testing.T, content string, fallback *extractor.Chain) *fixture {
	files, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	catalog, err := matcher.NewCatalog([]string{"PARACETAMOL 500MG CX"}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	engine := rag.NewEngine(chunker.New(chunker.DefaultConfig()), drugEmbedder{}, &jsonCompleter{}, rag.NewDocumentStore(), nil, rag.Options{})
	dispatcher := extractor.NewDispatcher(extractor.Config{})
	if fallback == nil {
		fallback, err = extractor.NewFallbackChain(dispatcher, nil, extractor.RequireRows)
		require.NoError(t, err)
	}
	f := &fixture{
		files:    files,
		uploader: &stubUploader{content: content},
		docs:     &memDocuments{docs: map[string]*model.Document{}},
		signer:   NewFileSigner("secret", time.Hour, "/api/v1/files"),
		engine:   engine,
	}
	f.svc = NewProcessService(ProcessDeps{
		Uploader:   f.uploader,
		Metadata:   metadata.New(nil),
		Engine:     engine,
		Dispatcher: dispatcher,
		Fallback:   fallback,
		Files:      files,
		Matcher:    matcher.New(drugEmbedder{}, matcher.NewHolder(catalog), ""),
		Documents:  f.docs,
		Signer:     f.signer,
	})
	f.svc.newID = func() string { return "doc-1" }
	return f
}

func tokenOf(t *testing.T, link string) string {
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestProcessFullPipeline(t *testing.T) {
	f := newFixture(t, itumbiaraEdital, nil)
	ctx := context.Background()

	res, err := f.svc.Process(ctx, ProcessInput{Filename: "edital.pdf", Body: strings.NewReader("%PDF"), Hint: "generico", Output: "xlsx"})
	require.NoError(t, err)
	require.Equal(t, "%PDF", f.uploader.got)
	require.Equal(t, "doc-1", res.DocumentID)
	require.Equal(t, "itumbiara", res.Municipality)
	require.Equal(t, "itumbiara", res.Extractor)
	require.Equal(t, 2, res.RowCount)
	require.Equal(t, 1, res.MatchedCount)
	require.Equal(t, 2, res.TotalDescriptions)
	require.Equal(t, []string{StepUpload, StepMetadata, StepEmbeddings, StepTable, StepMatching}, res.CompletedSteps)
	require.True(t, strings.HasPrefix(res.CSVURL, "/api/v1/files/doc-1_extracted.csv?token="))
	require.NotEmpty(t, res.ExcelURL)
	require.NotEmpty(t, res.EnhancedCSVURL)
	require.True(t, res.Summary.HasTotal)
	require.InDelta(t, 1100.0, res.Summary.TotalValue, 1e-9)

	files := NewFileService(f.files, f.signer)
	rc, err := files.Open(ctx, EnhancedKey("doc-1"), tokenOf(t, res.EnhancedCSVURL))
	require.NoError(t, err)
	defer rc.Close()
	enhanced, err := tableio.ReadCSV(rc)
	require.NoError(t, err)
	require.Equal(t, "PARACETAMOL 500MG CX", enhanced.Rows[0]["Produto_base_db"])
	require.Equal(t, matcher.NotFound, enhanced.Rows[1]["Produto_base_db"])

	_, err = files.Open(ctx, ExtractedKey("doc-1"), tokenOf(t, res.EnhancedCSVURL))
	require.ErrorIs(t, err, appErr.ErrUnauthorized)

	doc, err := f.svc.Document(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "edital.pdf", doc.Filename)
	require.Equal(t, EnhancedKey("doc-1"), doc.EnhancedKey)

	_, err = f.engine.Store().Get("doc-1")
	require.NoError(t, err)
}

func TestProcessUsesHintWhenMunicipalityUnknown(t *testing.T) {
	content := strings.TrimPrefix(itumbiaraEdital, "PREFEITURA DE ITUMBIARA\n")
	f := newFixture(t, content, nil)
	res, err := f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x"), Hint: "Itumbiara"})
	require.NoError(t, err)
	require.Equal(t, "", res.Municipality)
	require.Equal(t, "itumbiara", res.Extractor)
	require.Empty(t, res.ExcelURL)

	f = newFixture(t, content, nil)
	_, err = f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x"), Hint: "Goiânia"})
	require.ErrorIs(t, err, appErr.ErrUnrecognizedMunicipality)
}

func TestProcessRunsFallbackChainInOrder(t *testing.T) {
	chain := extractor.NewChain([]extractor.Strategy{
		{Name: "first", Extractor: stubExtractor{err: errors.New("no match")}},
		{Name: "second", Extractor: stubExtractor{}},
		{Name: "third", Extractor: stubExtractor{rows: 2}},
		{Name: "fourth", Extractor: stubExtractor{rows: 5}},
	}, extractor.RequireRows)
	f := newFixture(t, "texto sem municipio", chain)

	res, err := f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x")})
	require.NoError(t, err)
	require.Equal(t, "third", res.Extractor)
	require.Equal(t, []string{"first", "second", "third"}, res.Tried)
	require.Equal(t, 2, res.RowCount)
}

func TestProcessFailsWhenNothingExtracts(t *testing.T) {
	chain := extractor.NewChain([]extractor.Strategy{
		{Name: "itumbiara", Extractor: stubExtractor{}},
		{Name: "frutal", Extractor: stubExtractor{err: errors.New("boom")}},
	}, extractor.RequireRows)
	f := newFixture(t, "texto sem municipio", chain)

	_, err := f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x"), Hint: "generico"})
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
	require.Contains(t, err.Error(), "itumbiara, frutal")
	require.Empty(t, f.docs.docs)
}

func TestProcessInputErrors(t *testing.T) {
	f := newFixture(t, itumbiaraEdital, nil)
	_, err := f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x"), Output: "pdf"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = f.svc.Process(context.Background(), ProcessInput{Filename: "", Body: bytes.NewReader(nil)})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	f.uploader.err = appErr.ErrExternalProvider
	_, err = f.svc.Process(context.Background(), ProcessInput{Filename: "a.pdf", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, appErr.ErrExternalProvider)
	_, err = f.engine.Store().Get("doc-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestChatService(t *testing.T) {
	engine := rag.NewEngine(chunker.New(chunker.DefaultConfig()), drugEmbedder{}, &jsonCompleter{reply: "R$10,00"}, rag.NewDocumentStore(), nil, rag.Options{})
	ctx := context.Background()
	require.NoError(t, engine.Ingest(ctx, "doc", itumbiaraEdital, map[string]string{"municipality": "itumbiara", "item_count": "2"}))

	chat := NewChatService(engine, metadata.New(&jsonCompleter{reply: `{"Prazo de entrega": "10 dias"}`}), 0, 0)
	ans, err := chat.Ask(ctx, "doc", "preço do paracetamol", 0, 0)
	require.NoError(t, err)
	require.Equal(t, "R$10,00", ans.Response)
	require.Len(t, ans.Context, 1)

	_, err = chat.Ask(ctx, "missing", "preço", 1, 10)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = chat.Ask(ctx, "doc", " ", 1, 10)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	info, err := chat.BiddingInfo(ctx, "doc")
	require.NoError(t, err)
	require.Equal(t, "10 dias", info["Prazo de entrega"])
	require.Equal(t, "itumbiara", info["municipio"])
	require.Equal(t, 2, info["number_itens"])
}

func TestFileSignerRejectsBadTokens(t *testing.T) {
	s := NewFileSigner("secret", time.Hour, "/files/")
	link, err := s.URL("a.csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/files/a.csv?token="))
	require.NoError(t, s.Verify(tokenOf(t, link), "a.csv"))
	require.ErrorIs(t, s.Verify("", "a.csv"), appErr.ErrUnauthorized)
	require.ErrorIs(t, s.Verify("garbage", "a.csv"), appErr.ErrUnauthorized)
	require.ErrorIs(t, NewFileSigner("other", time.Hour, "").Verify(tokenOf(t, link), "a.csv"), appErr.ErrUnauthorized)
}

func TestProcessResultEncodesWithNonNumericTotals(t *testing.T) {
	content := "PREFEITURA DE ITUMBIARA\n 1 \nLuva\nCX\n10\nR$ 2,00\nInfinity"
	f := newFixture(t, content, nil)

	res, err := f.svc.Process(context.Background(), ProcessInput{Filename: "edital.pdf", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	require.False(t, res.Summary.HasTotal)
	require.Zero(t, res.Summary.TotalValue)

	_, err = json.Marshal(res)
	require.NoError(t, err)
}
