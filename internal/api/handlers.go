package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/document"
	"github.com/inkwell-cms/inkwell/internal/resource"
	"github.com/inkwell-cms/inkwell/internal/store"
	"github.com/inkwell-cms/inkwell/internal/web/middleware"
	"github.com/inkwell-cms/inkwell/internal/web/response"
	"github.com/inkwell-cms/inkwell/internal/web/router"
)

// index lists every registered type with its collection link
func (a *API) index(w http.ResponseWriter, r *http.Request) {
	rctx := a.requestContext(r)
	links := make(map[string]string, a.registry.Count())
	for _, typ := range a.registry.Types() {
		links[typ] = rctx.CollectionURL(typ)
	}
	_ = response.RenderJSON(w, http.StatusOK, links)
}

// list: validateType → find all
func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, err := a.validateType(router.Param(r, "type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	coll, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	records, err := coll.Find(ctx, store.Query{})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, document.SerializeCollection(schema, records, a.requestContext(r)))
}

// create: validateType → validatePayload → rejectClientId → deserialize →
// fill nulls → apply relationship refs → insert
func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, err := a.validateType(router.Param(r, "type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	doc, err := a.decode(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := document.ValidatePayload(doc)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if data.ID != "" {
		a.fail(w, r, badRequest(MsgClientID))
		return
	}

	record, err := document.Deserialize(schema, doc, false)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	coll, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	inserted, err := coll.Insert(ctx, record)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, document.Serialize(schema, inserted, a.requestContext(r)))
}

// show: validateType → findById
func (a *API) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, err := a.validateType(router.Param(r, "type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	coll, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	record, err := findByID(ctx, coll, router.Param(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, document.Serialize(schema, record, a.requestContext(r)))
}

// update: validatePayload → requireBodyId → bodyIdMatchesPathId →
// validateType → deserialize(partial) → apply relationship refs → update →
// findById
func (a *API) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := router.Param(r, "id")

	doc, err := a.decode(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := document.ValidatePayload(doc)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if data.ID == "" {
		a.fail(w, r, badRequest(MsgUpdateID))
		return
	}
	if data.ID != id {
		a.fail(w, r, badRequest(MsgIDMismatch))
		return
	}

	schema, err := a.validateType(router.Param(r, "type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	partial, err := document.Deserialize(schema, doc, true)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	coll, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := coll.Update(ctx, id, partial); err != nil {
		if store.IsNotFound(err) {
			err = notFoundRecord(id, err)
		}
		a.fail(w, r, err)
		return
	}
	record, err := findByID(ctx, coll, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, document.Serialize(schema, record, a.requestContext(r)))
}

// remove: validateType → findById → remove
func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, err := a.validateType(router.Param(r, "type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	id := router.Param(r, "id")
	coll, err := a.store.Collection(ctx, schema.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := findByID(ctx, coll, id); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := coll.Remove(ctx, id); err != nil {
		if store.IsNotFound(err) {
			err = notFoundRecord(id, err)
		}
		a.fail(w, r, err)
		return
	}

	response.NoContent(w)
}

func (a *API) notImplemented(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, ErrNotImplemented)
}

// validateType resolves the schema for a path type segment
func (a *API) validateType(typ string) (*resource.Schema, error) {
	return a.registry.Schema(typ)
}

// findByID loads a record, turning a miss into a 404 naming the id
func findByID(ctx context.Context, coll store.Collection, id string) (store.Record, error) {
	record, err := coll.FindOne(ctx, id)
	if store.IsNotFound(err) {
		return nil, notFoundRecord(id, err)
	}
	return record, err
}

// decode reads the request body as a JSON:API document, bounded by the body limit
func (a *API) decode(w http.ResponseWriter, r *http.Request) (*document.Document, error) {
	if !response.IsJSONBody(r) {
		return nil, &Error{Status: http.StatusUnsupportedMediaType, Message: MsgUnsupportedType}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return document.Decode(bytes.NewReader(body))
}

func (a *API) requestContext(r *http.Request) document.RequestContext {
	return document.NewRequestContext(r, a.prefix, a.trustProxy)
}

// render writes a document tagged with an ETag, falling back to a 500 if it
// cannot be encoded
func (a *API) render(w http.ResponseWriter, r *http.Request, status int, doc *document.Document) {
	if err := response.RenderJSONAPIConditional(w, r, status, doc); err != nil {
		a.logger.Error("failed to render document", middleware.RequestIDField(r.Context()), zap.Error(err))
		response.RenderInternalError(w)
	}
}

// fail renders err as an error document. Server errors are logged with their
// cause; the client only sees a generic message.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toError(err)
	if apiErr.Status >= http.StatusInternalServerError && apiErr.Status != http.StatusNotImplemented {
		a.logger.Error("request failed",
			middleware.RequestIDField(r.Context()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		a.logger.Debug("request rejected",
			middleware.RequestIDField(r.Context()),
			zap.Int("status", apiErr.Status),
			zap.String("reason", apiErr.Message),
		)
	}
	response.RenderError(w, apiErr.Status, apiErr.Message)
}
