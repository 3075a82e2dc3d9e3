// components/customersites/customersites.go
//
// Customer-site CRUD component.
//
// Context
// -------
// Mounted at /customer-sites.  Every request except OPTIONS (answered by
// the CORS middleware upstream) must pass the credential gate; the
// component itself is stateless and talks only to the store.Store handed
// to it in Init, so it never knows which backend is live.
//
// Routes
// ------
//
//	GET    /customer-sites        list every record
//	GET    /customer-sites/{id}   one record, 404 when absent
//	POST   /customer-sites        create; 409 when the id exists
//	PUT    /customer-sites/{id}   overwrite api, name, and adult
//	DELETE /customer-sites/{id}   remove
//
// PUT and DELETE without an id answer 400; any other method answers 405.
//
// Notes
// -----
// • Storage failures are logged with the raw error and answered with the
//   generic "database operation failed" so backend detail never leaks.
// • Oxford commas, two spaces after periods.
package customersites

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/component"
	"github.com/yanizio/libretv-sites/internal/middleware"
	"github.com/yanizio/libretv-sites/internal/requestinfo"
	"github.com/yanizio/libretv-sites/internal/respond"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

// Response texts shared with the client package.
const (
	MsgUnauthorized = "unauthorized"
	MsgNotFound     = "not found"
	MsgConflict     = "site id already exists"
	MsgMissingID    = "missing site id"
	MsgBadID        = "site id is not validly escaped"
	MsgBadJSON      = "request body is not valid JSON"
	MsgMethod       = "method not supported"
	MsgStorage      = "database operation failed"
	MsgDeleted      = "deleted"
)

const maxBody = 1 << 20

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
)

func init() { component.Register(&Comp{}) }

// Comp implements component.Component.
type Comp struct {
	store store.Store
	auth  *auth.Authenticator
	log   *zap.SugaredLogger
	now   func() time.Time
}

// New builds a ready component without going through the registry.
func New(deps component.Deps) (*Comp, error) {
	c := &Comp{}
	if err := c.Init(deps); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Comp) Name() string   { return "customer-sites" }
func (c *Comp) Prefix() string { return "/customer-sites" }

func (c *Comp) Init(d component.Deps) error {
	if d.Store == nil || d.Auth == nil {
		return errors.New("customersites: store and authenticator are required")
	}
	c.store, c.auth, c.log, c.now = d.Store, d.Auth, d.Log, d.Now
	if c.log == nil {
		c.log = zap.S()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth(c.auth))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusNotFound, MsgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusMethodNotAllowed, MsgMethod)
	})

	r.Get("/", c.list)
	r.Post("/", c.create)
	r.Put("/", c.missingID)
	r.Delete("/", c.missingID)

	r.Get("/{id}", c.get)
	r.Put("/{id}", c.update)
	r.Delete("/{id}", c.remove)
	return r
}

/*──────────────────────────── handlers ────────────────────────────────────*/

func (c *Comp) list(w http.ResponseWriter, r *http.Request) {
	recs, err := c.store.FindAll(r.Context())
	if err != nil {
		c.storageFailure(w, r, "list", err)
		return
	}
	if recs == nil {
		recs = []site.Record{}
	}
	respond.OK(w, recs)
}

func (c *Comp) get(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	rec, err := c.store.FindOne(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		c.storageFailure(w, r, "get", err)
	default:
		respond.OK(w, rec)
	}
}

type createBody struct {
	ID    string `json:"id"`
	API   string `json:"api"`
	Name  string `json:"name"`
	Adult bool   `json:"adult"`
}

func (c *Comp) create(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if !decode(w, r, &body) {
		return
	}

	stamp := site.Stamp(c.now())
	rec := site.Record{
		ID:        body.ID,
		API:       body.API,
		Name:      body.Name,
		Adult:     body.Adult,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	if err := site.ValidateRecord(rec); err != nil {
		badRequest(w, err)
		return
	}

	ctx := r.Context()
	if _, err := c.store.FindOne(ctx, rec.ID); err == nil {
		respond.Fail(w, http.StatusConflict, MsgConflict)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		c.storageFailure(w, r, "create", err)
		return
	}

	switch err := c.store.Insert(ctx, rec); {
	case errors.Is(err, store.ErrConflict):
		respond.Fail(w, http.StatusConflict, MsgConflict)
	case err != nil:
		c.storageFailure(w, r, "create", err)
	default:
		c.log.Infow("site created", "id", rec.ID, "request_id", requestID(r))
		respond.OK(w, rec)
	}
}

type updateBody struct {
	API   string `json:"api"`
	Name  string `json:"name"`
	Adult bool   `json:"adult"`
}

func (c *Comp) update(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}

	var body updateBody
	if !decode(w, r, &body) {
		return
	}
	fields := site.Fields{API: body.API, Name: body.Name, Adult: body.Adult, UpdatedAt: site.Stamp(c.now())}
	if err := site.ValidateFields(fields); err != nil {
		badRequest(w, err)
		return
	}

	ctx := r.Context()
	existing, err := c.store.FindOne(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Fail(w, http.StatusNotFound, MsgNotFound)
		return
	}
	if err != nil {
		c.storageFailure(w, r, "update", err)
		return
	}

	switch err := c.store.UpdateFields(ctx, id, fields); {
	case errors.Is(err, store.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		c.storageFailure(w, r, "update", err)
	default:
		c.log.Infow("site updated", "id", id, "request_id", requestID(r))
		respond.OK(w, existing.Apply(fields))
	}
}

func (c *Comp) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	switch err := c.store.Delete(r.Context(), id); {
	case errors.Is(err, store.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		c.storageFailure(w, r, "delete", err)
	default:
		c.log.Infow("site deleted", "id", id, "request_id", requestID(r))
		respond.Message(w, MsgDeleted)
	}
}

func (c *Comp) missingID(w http.ResponseWriter, _ *http.Request) {
	respond.Fail(w, http.StatusBadRequest, MsgMissingID)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (c *Comp) storageFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	c.log.Errorw("storage operation failed", "op", op, "path", r.URL.Path, "request_id", requestID(r), "err", err)
	respond.Fail(w, http.StatusInternalServerError, MsgStorage)
}

// siteID returns the decoded {id} segment.  chi matches on RawPath when the
// client escaped reserved characters ("a%2Cb"), so the parameter is still
// escaped in that case and is unescaped here; a bad escape answers 400.
func siteID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, true
	}
	dec, err := url.PathUnescape(id)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, MsgBadID)
		return "", false
	}
	return dec, true
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, MsgBadJSON)
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, err error) {
	msg := strings.TrimPrefix(err.Error(), site.ErrInvalid.Error()+": ")
	respond.Fail(w, http.StatusBadRequest, msg)
}

func requestID(r *http.Request) string {
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		return ri.ID
	}
	return ""
}
