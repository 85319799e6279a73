package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/licitarag/internal/filestore"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/pkg/jwt"
)

// FileSigner issues download links bound to one artifact key.
type FileSigner struct {
	secret   []byte
	ttl      time.Duration
	basePath string
}

func NewFileSigner(secret string, ttl time.Duration, basePath string) *FileSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FileSigner{secret: []byte(secret), ttl: ttl, basePath: strings.TrimRight(basePath, "/")}
}

func (s *FileSigner) URL(key string) (string, error) {
	token, err := jwt.GenerateFileToken(key, s.secret, s.ttl)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s?token=%s", s.basePath, url.PathEscape(key), url.QueryEscape(token)), nil
}

func (s *FileSigner) Verify(token, key string) error {
	if token == "" {
		return appErr.ErrUnauthorized
	}
	if err := jwt.VerifyFileToken(token, key, s.secret); err != nil {
		return fmt.Errorf("file token: %v: %w", err, appErr.ErrUnauthorized)
	}
	return nil
}

type FileService struct {
	store  filestore.Store
	signer *FileSigner
}

func NewFileService(store filestore.Store, signer *FileSigner) *FileService {
	return &FileService{store: store, signer: signer}
}

// Open checks the download token and opens the artifact.
func (s *FileService) Open(ctx context.Context, key, token string) (io.ReadCloser, error) {
	if !filestore.ValidKey(key) {
		return nil, appErr.ErrInvalid
	}
	if err := s.signer.Verify(token, key); err != nil {
		return nil, err
	}
	return s.store.Open(ctx, key)
}
