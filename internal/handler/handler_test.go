package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/chunker"
	"github.com/xxxsen/licitarag/internal/config"
	"github.com/xxxsen/licitarag/internal/extractor"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/handler"
	"github.com/xxxsen/licitarag/internal/matcher"
	"github.com/xxxsen/licitarag/internal/metadata"
	"github.com/xxxsen/licitarag/internal/middleware"
	"github.com/xxxsen/licitarag/internal/pkg/errcode"
	"github.com/xxxsen/licitarag/internal/rag"
	"github.com/xxxsen/licitarag/internal/service"
)

const edital = "PREFEITURA DE ITUMBIARA\n" +
	" 001 \nParacetamol 500mg\nCX\n100\nR$10,00\nR$1000,00"

type fixedUploader struct{}

func (fixedUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	return edital, nil
}

type oneHotEmbedder struct{}

func (oneHotEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "paracetamol") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (oneHotEmbedder) ModelName() string { return "one-hot" }

type cannedCompleter struct{}

func (cannedCompleter) Complete(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
	if messages[0].Role == ai.RoleSystem && strings.HasPrefix(messages[0].Content, "Você é um especialista") {
		return `{"Prazo de entrega": "10 dias"}`, nil
	}
	return "R$10,00 por caixa", nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	catalog, err := matcher.NewCatalog([]string{"PARACETAMOL 500MG"}, [][]float32{{1, 0}})
	require.NoError(t, err)

	engine := rag.NewEngine(chunker.New(chunker.DefaultConfig()), oneHotEmbedder{}, cannedCompleter{}, rag.NewDocumentStore(), nil, rag.Options{})
	dispatcher := extractor.NewDispatcher(extractor.Config{})
	fallback, err := extractor.NewFallbackChain(dispatcher, nil, extractor.RequireRows)
	require.NoError(t, err)
	signer := service.NewFileSigner("test-secret", time.Hour, "/api/v1/files")
	meta := metadata.New(cannedCompleter{})

	process := service.NewProcessService(service.ProcessDeps{
		Uploader:   fixedUploader{},
		Metadata:   meta,
		Engine:     engine,
		Dispatcher: dispatcher,
		Fallback:   fallback,
		Files:      store,
		Matcher:    matcher.New(oneHotEmbedder{}, matcher.NewHolder(catalog), ""),
		Signer:     signer,
	})
	deps := handler.RouterDeps{
		Process:   handler.NewProcessHandler(process, 1024),
		Chat:      handler.NewChatHandler(service.NewChatService(engine, meta, 1, 100)),
		Documents: handler.NewDocumentHandler(process),
		Files:     handler.NewFileHandler(service.NewFileService(store, signer)),
	}
	router, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return router
}

func uploadRequest(t *testing.T, filename string, size int) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("formato", "generico"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractor/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return resp, env
}

func TestProcessChatAndDownload(t *testing.T) {
	router := setupRouter(t)

	_, env := serve(t, router, uploadRequest(t, "edital.pdf", 10))
	require.Equal(t, 0, env.Code)
	var processed struct {
		DocumentID     string `json:"document_id"`
		Municipality   string `json:"municipality"`
		Extractor      string `json:"extractor"`
		RowCount       int    `json:"row_count"`
		CSVURL         string `json:"csv_url"`
		EnhancedCSVURL string `json:"enhanced_csv_url"`
		MatchedCount   int    `json:"matched_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &processed))
	require.NotEmpty(t, processed.DocumentID)
	require.Equal(t, "itumbiara", processed.Municipality)
	require.Equal(t, 1, processed.RowCount)
	require.Equal(t, 1, processed.MatchedCount)

	payload, _ := json.Marshal(map[string]interface{}{"content_id": processed.DocumentID, "query": "preço do paracetamol"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	_, env = serve(t, router, req)
	require.Equal(t, 0, env.Code)
	var chat struct {
		Response string    `json:"response"`
		Scores   []float32 `json:"similarity_scores"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	require.Equal(t, "R$10,00 por caixa", chat.Response)
	require.Len(t, chat.Scores, 1)

	_, env = serve(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+processed.DocumentID+"/bidding-info", nil))
	require.Equal(t, 0, env.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	require.Equal(t, "10 dias", info["Prazo de entrega"])
	require.Equal(t, "itumbiara", info["municipio"])

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, processed.CSVURL, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Paracetamol 500mg")
	require.Contains(t, resp.Header().Get("Content-Disposition"), "_extracted.csv")

	u, err := url.Parse(processed.CSVURL)
	require.NoError(t, err)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, u.Path, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestChatUnknownDocument(t *testing.T) {
	router := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"content_id":"nope","query":"prazo"}`))
	req.Header.Set("Content-Type", "application/json")
	_, env := serve(t, router, req)
	require.Equal(t, errcode.ErrNotFound, env.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	_, env = serve(t, router, req)
	require.Equal(t, errcode.ErrInvalid, env.Code)
}

func TestProcessRejectsLargeOrMissingFile(t *testing.T) {
	router := setupRouter(t)
	_, env := serve(t, router, uploadRequest(t, "big.pdf", 2048))
	require.Equal(t, errcode.ErrInvalidFile, env.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractor/process", strings.NewReader(""))
	_, env = serve(t, router, req)
	require.Equal(t, errcode.ErrInvalidFile, env.Code)
}

func TestDocumentWithoutDatabase(t *testing.T) {
	router := setupRouter(t)
	_, env := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/documents/abc", nil))
	require.Equal(t, errcode.ErrNotFound, env.Code)
}
