package backend

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanizio/libretv-sites/internal/metrics"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

// instrumented records customer_sites_storage_duration_seconds for every
// call on the wrapped store.
type instrumented struct {
	name  string
	inner store.Store
}

// Instrument wraps s so each call is timed under the backend label name.
func Instrument(name string, s store.Store) store.Store {
	return &instrumented{name: name, inner: s}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, store.ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	metrics.StorageDuration.With(prometheus.Labels{
		"backend": i.name, "op": op, "outcome": outcome,
	}).Observe(time.Since(start).Seconds())
}

func (i *instrumented) FindOne(ctx context.Context, id string) (rec *site.Record, err error) {
	defer func(start time.Time) { i.observe("find_one", start, err) }(time.Now())
	return i.inner.FindOne(ctx, id)
}

func (i *instrumented) FindAll(ctx context.Context) (recs []site.Record, err error) {
	defer func(start time.Time) { i.observe("find_all", start, err) }(time.Now())
	return i.inner.FindAll(ctx)
}

func (i *instrumented) Insert(ctx context.Context, rec site.Record) (err error) {
	defer func(start time.Time) { i.observe("insert", start, err) }(time.Now())
	return i.inner.Insert(ctx, rec)
}

func (i *instrumented) UpdateFields(ctx context.Context, id string, f site.Fields) (err error) {
	defer func(start time.Time) { i.observe("update", start, err) }(time.Now())
	return i.inner.UpdateFields(ctx, id, f)
}

func (i *instrumented) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.inner.Delete(ctx, id)
}

func (i *instrumented) EnsureSchema(ctx context.Context) (err error) {
	defer func(start time.Time) { i.observe("ensure_schema", start, err) }(time.Now())
	return i.inner.EnsureSchema(ctx)
}

func (i *instrumented) Close() error { return i.inner.Close() }
