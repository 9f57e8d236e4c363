package idm

import (
	"context"
	"fmt"
	"iter"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 50

// Page is one page of a listing. An empty Next marks the last page.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFunc fetches the page starting at cursor. The first page has an empty
// cursor.
type PageFunc[T any] func(ctx context.Context, cursor string, pageSize int) (*Page[T], error)

// NormalizePageSize returns size, or DefaultPageSize when size is not positive.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}

	return size
}

// FetchAll fetches every page and returns the items in server order.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], pageSize int) ([]T, error) {
	it := NewPageIterator(ctx, fetch, pageSize)

	return it.All()
}

// PageIterator lazily walks a paged listing. The next page is fetched only
// once the current one is used up. An iterator cannot be restarted.
type PageIterator[T any] struct {
	ctx      context.Context //nolint:containedctx // iterator is bound to one listing call
	fetch    PageFunc[T]
	pageSize int

	items   []T
	index   int
	cursor  string
	started bool
	done    bool
	err     error
}

// NewPageIterator creates an iterator over the pages produced by fetch.
func NewPageIterator[T any](ctx context.Context, fetch PageFunc[T], pageSize int) *PageIterator[T] {
	return &PageIterator[T]{
		ctx:      ctx,
		fetch:    fetch,
		pageSize: NormalizePageSize(pageSize),
	}
}

// HasNext reports whether another item is available, fetching the next page
// if the current one is exhausted. It returns false after an error; check Err.
func (p *PageIterator[T]) HasNext() bool {
	for p.index >= len(p.items) {
		if p.done || p.err != nil {
			return false
		}

		p.fetchNext()
	}

	return true
}

// Next returns the next item.
func (p *PageIterator[T]) Next() (T, error) {
	var zero T

	if !p.HasNext() {
		if p.err != nil {
			return zero, p.err
		}

		return zero, ErrIteratorExhausted
	}

	item := p.items[p.index]
	p.index++

	return item, nil
}

// Err returns the error that stopped iteration, if any.
func (p *PageIterator[T]) Err() error {
	return p.err
}

// All drains the iterator.
func (p *PageIterator[T]) All() ([]T, error) {
	var all []T

	for p.HasNext() {
		item, _ := p.Next()
		all = append(all, item)
	}

	if p.err != nil {
		return nil, p.err
	}

	if all == nil {
		all = []T{}
	}

	return all, nil
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (p *PageIterator[T]) ForEach(fn func(T) error) error {
	for p.HasNext() {
		item, _ := p.Next()

		err := fn(item)
		if err != nil {
			return err
		}
	}

	return p.err
}

// Seq adapts the iterator for range-over-func. A fetch error is yielded once
// as the final element.
func (p *PageIterator[T]) Seq() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for p.HasNext() {
			item, _ := p.Next()
			if !yield(item, nil) {
				return
			}
		}

		if p.err != nil {
			var zero T

			yield(zero, p.err)
		}
	}
}

func (p *PageIterator[T]) fetchNext() {
	if p.started && p.cursor == "" {
		p.done = true

		return
	}

	err := p.ctx.Err()
	if err != nil {
		p.err = TransportError(fmt.Errorf("fetching page: %w", err))

		return
	}

	page, err := p.fetch(p.ctx, p.cursor, p.pageSize)
	if err != nil {
		p.err = err

		return
	}

	p.started = true
	p.items = page.Items
	p.index = 0
	p.cursor = page.Next

	if len(page.Items) == 0 {
		p.done = true
	}
}
