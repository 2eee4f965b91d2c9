package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/document"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
	"github.com/inkwell-cms/inkwell/internal/web/middleware"
	"github.com/inkwell-cms/inkwell/internal/web/router"
)

// relationship: validateType → validateRelationshipKey → findById(owner) → resolve
func (a *API) relationship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := router.Param(r, "type")
	key := router.Param(r, "key")

	schema, err := a.validateType(typ)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rel, ok := document.LookupRelationship(schema, key)
	if !ok {
		lookup := &resource.LookupError{Kind: resource.ErrUnknownRelationship, Type: schema.Name, Key: key}
		a.fail(w, r, &Error{Status: http.StatusBadRequest, Message: lookup.Error(), Err: lookup})
		return
	}

	owners, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	owner, err := findByID(ctx, owners, router.Param(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	doc, err := a.resolve(ctx, rel, owner[rel.Key], a.requestContext(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, doc)
}

// resolve loads the records a stored reference points at. Absent references
// resolve to the empty document for the cardinality. Ids with no matching
// record are left out of a to-many result, and a to-one reference that
// cannot be loaded resolves to null.
func (a *API) resolve(ctx context.Context, rel resource.Relationship, stored any, rctx document.RequestContext) (*document.Document, error) {
	empty := document.SerializeEmpty(rel.IsMany(), rctx)

	ids := document.ReferenceIDs(stored)
	if len(ids) == 0 {
		return empty, nil
	}

	target, err := a.registry.Schema(rel.Target)
	if err != nil {
		return nil, err
	}
	coll, err := a.store.Collection(ctx, target.Name)

	if !rel.IsMany() {
		var record store.Record
		if err == nil {
			record, err = coll.FindOne(ctx, ids[0])
		}
		if err != nil {
			a.logger.Debug("related record unavailable",
				middleware.RequestIDField(ctx),
				zap.String("collection", target.Name),
				zap.String("id", ids[0]),
				zap.Error(err),
			)
			return empty, nil
		}
		return document.Serialize(target, record, rctx), nil
	}

	if err != nil {
		return nil, err
	}
	records, err := coll.Find(ctx, store.Query{IDs: ids})
	if err != nil {
		return nil, err
	}
	return document.SerializeCollection(target, inReferenceOrder(ids, records), rctx), nil
}

// inReferenceOrder arranges records in the order their ids were referenced.
// A repeated reference yields the record once.
func inReferenceOrder(ids []string, records []store.Record) []store.Record {
	byID := make(map[string]store.Record, len(records))
	for _, record := range records {
		byID[record.ID()] = record
	}

	out := make([]store.Record, 0, len(records))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			out = append(out, record)
			delete(byID, id)
		}
	}
	return out
}
