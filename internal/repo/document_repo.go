package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/licitarag/internal/model"
	"github.com/xxxsen/licitarag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

var documentColumns = []string{
	"id", "filename", "municipality", "item_count", "extractor", "row_count",
	"csv_key", "enhanced_key", "matched_count", "total_descriptions", "ctime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a document record. Records are written once; a duplicate id
// is ErrConflict.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                 doc.ID,
		"filename":           doc.Filename,
		"municipality":       doc.Municipality,
		"item_count":         doc.ItemCount,
		"extractor":          doc.Extractor,
		"row_count":          doc.RowCount,
		"csv_key":            doc.CSVKey,
		"enhanced_key":       doc.EnhancedKey,
		"matched_count":      doc.MatchedCount,
		"total_descriptions": doc.TotalDescriptions,
		"ctime":              doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var doc model.Document
	if err := scanDocument(rows, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows, doc *model.Document) error {
	return rows.Scan(&doc.ID, &doc.Filename, &doc.Municipality, &doc.ItemCount, &doc.Extractor, &doc.RowCount,
		&doc.CSVKey, &doc.EnhancedKey, &doc.MatchedCount, &doc.TotalDescriptions, &doc.Ctime)
}
