package vectorstore

import (
	"context"
	"fmt"
	"time"
)

// unavailable stands in for a backend that could not be constructed.
type unavailable struct {
	name  string
	dim   int
	cause error
}

// Unavailable returns an Index whose every call fails with
// ErrIndexUnavailable wrapping cause.
func Unavailable(name string, dim int, cause error) Index {
	return &unavailable{name: name, dim: dim, cause: cause}
}

func (u *unavailable) err(op string) error {
	err := fmt.Errorf("%w: %s", ErrIndexUnavailable, u.name)
	if u.cause != nil {
		err = fmt.Errorf("%w: %s: %w", ErrIndexUnavailable, u.name, u.cause)
	}
	observe("unavailable", op, time.Now(), err)
	return err
}

func (u *unavailable) Upsert(context.Context, []Record) error {
	return u.err("upsert")
}

func (u *unavailable) Query(context.Context, []float32, int, bool) ([]SearchResult, error) {
	return nil, u.err("query")
}

func (u *unavailable) Delete(context.Context, []string) error {
	return u.err("delete")
}

func (u *unavailable) FetchAll(context.Context, string) ([]SearchResult, error) {
	return nil, u.err("fetch_all")
}

func (u *unavailable) Count(context.Context) (int, error) {
	return 0, u.err("count")
}

func (u *unavailable) Dimension() int { return u.dim }
func (u *unavailable) Name() string   { return u.name }
func (u *unavailable) Close() error   { return nil }
