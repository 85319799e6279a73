package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/matcher"
)

// CatalogReloadJob swaps in a fresh catalog snapshot. The current one is
// kept when loading fails.
type CatalogReloadJob struct {
	store         filestore.Store
	holder        *matcher.Holder
	namesKey      string
	embeddingsKey string
}

func NewCatalogReloadJob(store filestore.Store, holder *matcher.Holder, namesKey, embeddingsKey string) *CatalogReloadJob {
	return &CatalogReloadJob{store: store, holder: holder, namesKey: namesKey, embeddingsKey: embeddingsKey}
}

func (j *CatalogReloadJob) Name() string {
	return "catalog_reload"
}

func (j *CatalogReloadJob) Run(ctx context.Context) error {
	if j.store == nil || j.holder == nil {
		return nil
	}
	catalog, err := matcher.LoadCatalog(ctx, j.store, j.namesKey, j.embeddingsKey)
	if err != nil {
		return err
	}
	j.holder.Set(catalog)
	logutil.GetLogger(ctx).Info("catalog reloaded", zap.Int("products", catalog.Len()), zap.Int("dim", catalog.Dim()))
	return nil
}
