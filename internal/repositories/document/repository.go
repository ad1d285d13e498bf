package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const defaultPageSize = 100

// Repository is a DocumentStore over the documents table
type Repository struct {
	db       database.DB
	logger   ectologger.Logger
	pageSize int
}

type documentRow struct {
	ID         string                         `db:"id"`
	Collection string                         `db:"collection"`
	Properties database.JSONB[map[string]any] `db:"properties"`
	CreatedAt  *time.Time                     `db:"created_at"`
}

// NewRepository creates a document repository reading pageSize rows per round trip
func NewRepository(db database.DB, pageSize int, logger ectologger.Logger) *Repository {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Repository{
		db:       db,
		logger:   logger,
		pageSize: pageSize,
	}
}

// QueryAll pages through every live document of the collection ordered by id
func (r *Repository) QueryAll(ctx context.Context, collection string, filter *models.QueryFilter) ([]models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.QueryAll")
	defer span.End()

	var containment string
	if filter != nil && len(filter.Properties) > 0 {
		b, err := json.Marshal(filter.Properties)
		if err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid query filter: %s", err.Error())
		}
		containment = string(b)
	}

	docs := make([]models.Document, 0)
	after := ""
	pages := 0
	for {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id", "collection", "properties", "created_at")
		sb.From("documents")
		sb.Where(
			sb.Equal("collection", collection),
			sb.IsNull("archived_at"),
		)
		if after != "" {
			sb.Where(sb.GreaterThan("id", after))
		}
		if containment != "" {
			sb.Where(fmt.Sprintf("properties @> %s::jsonb", sb.Var(containment)))
		}
		sb.OrderBy("id").Asc()
		sb.Limit(r.pageSize)

		query, args := sb.Build()
		var rows []documentRow
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("collection", collection).Error("Failed to query documents")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query documents")
		}
		pages++

		for _, row := range rows {
			docs = append(docs, row.toDocument())
		}
		if len(rows) < r.pageSize {
			break
		}
		after = rows[len(rows)-1].ID
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"collection": collection,
		"documents":  len(docs),
		"pages":      pages,
	}).Debugf("Queried documents")
	return docs, nil
}

// UpdatePartial merges properties into the stored document; keys not present are left unchanged
func (r *Repository) UpdatePartial(ctx context.Context, id string, properties map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.UpdatePartial")
	defer span.End()

	patch, err := json.Marshal(properties)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid properties for document %s: %s", id, err.Error())
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}
	defer tx.Rollback(ctx)

	if err := r.lockLive(ctx, tx, id); err != nil {
		return err
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("documents")
	ub.Set(
		fmt.Sprintf("properties = properties || %s::jsonb", ub.Var(string(patch))),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}
	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}
	return nil
}

// Archive soft deletes a document
func (r *Repository) Archive(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Archive")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive document")
	}
	defer tx.Rollback(ctx)

	if err := r.lockLive(ctx, tx, id); err != nil {
		return err
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("documents")
	ub.Set(
		ub.Assign("archived_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to archive document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive document")
	}
	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive document")
	}

	r.logger.WithContext(ctx).WithField("id", id).Info("Archived document")
	return nil
}

// Insert upserts documents into a collection. An upserted document is live again.
func (r *Repository) Insert(ctx context.Context, collection string, docs []models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Insert")
	defer span.End()

	if len(docs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("documents")
	ib.Cols("id", "collection", "properties", "created_at", "updated_at")
	for _, d := range docs {
		props := d.Properties
		if props == nil {
			props = map[string]any{}
		}
		ib.Values(d.ID, collection, database.JSONB[map[string]any]{Data: props}, d.CreatedAt, now)
	}

	query, args := ib.Build()
	query += " ON CONFLICT (id) DO UPDATE SET collection = EXCLUDED.collection, properties = EXCLUDED.properties, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at, archived_at = NULL"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert documents")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert documents")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"collection": collection, "count": len(docs)}).Info("Inserted documents")
	return nil
}

// lockLive row-locks a document, failing with 404 when missing and 409 when archived
func (r *Repository) lockLive(ctx context.Context, tx database.Tx, id string) error {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("archived_at")
	sb.From("documents")
	sb.Where(sb.Equal("id", id))
	sb.ForUpdate()

	query, args := sb.Build()
	var archivedAt sql.NullTime
	if err := tx.GetContext(ctx, &archivedAt, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperror.NewHTTPErrorf(http.StatusNotFound, "document %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to lock document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock document")
	}
	if archivedAt.Valid {
		return httperror.NewHTTPErrorf(http.StatusConflict, "document %s is archived", id)
	}
	return nil
}

func (row documentRow) toDocument() models.Document {
	props := row.Properties.GetValue()
	if props == nil {
		props = map[string]any{}
	}
	return models.Document{
		ID:         row.ID,
		Collection: row.Collection,
		CreatedAt:  row.CreatedAt,
		Properties: props,
	}
}
