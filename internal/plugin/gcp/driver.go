package gcp

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

type entityResult struct {
	res resource.Resource
	rec *resource.ErrorRecord
}

// collectEach assembles one record per item. A failing or panicking item
// produces an ErrorRecord instead and never stops the others. Results keep
// input order. With workers > 1 items are assembled concurrently.
func collectEach[T any](
	ctx context.Context,
	kind, resourceType string,
	items []T,
	workers int,
	idOf func(T) string,
	build func(context.Context, T) (resource.Resource, error),
) ([]resource.Resource, []resource.ErrorRecord) {
	results := make([]entityResult, len(items))

	if workers <= 1 {
		for i, item := range items {
			results[i] = collectOne(ctx, kind, resourceType, item, idOf, build)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i, item := range items {
			i, item := i, item
			g.Go(func() error {
				results[i] = collectOne(ctx, kind, resourceType, item, idOf, build)
				return nil
			})
		}
		_ = g.Wait()
	}

	resources := make([]resource.Resource, 0, len(items))
	var records []resource.ErrorRecord
	for _, r := range results {
		if r.rec != nil {
			records = append(records, *r.rec)
			continue
		}
		resources = append(resources, r.res)
	}
	return resources, records
}

func collectOne[T any](
	ctx context.Context,
	kind, resourceType string,
	item T,
	idOf func(T) string,
	build func(context.Context, T) (resource.Resource, error),
) (result entityResult) {
	id := ""
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("panic while assembling %s: %v", kind, r)
			result = entityResult{rec: errorRecord(kind, resourceType, id, err)}
		}
	}()

	id = idOf(item)
	res, err := build(ctx, item)
	if err != nil {
		return entityResult{rec: errorRecord(kind, resourceType, id, errors.WithStack(err))}
	}
	return entityResult{res: res}
}

func errorRecord(kind, resourceType, id string, err error) *resource.ErrorRecord {
	log.Error().Err(err).
		Str("kind", kind).
		Str("entity_id", id).
		Msg("assemble entity failed")

	return &resource.ErrorRecord{
		EntityID:     id,
		ResourceType: resourceType,
		Message:      err.Error(),
		StackContext: fmt.Sprintf("%+v", err),
	}
}
