package main

import (
	"context"
	"fmt"

	"github.com/sagarc03/bucketgate"
	"github.com/sagarc03/bucketgate/binding"
	"github.com/sagarc03/bucketgate/config"
	gatehttp "github.com/sagarc03/bucketgate/http"
)

// openSelected opens only the binding named by bucket.binding.
func openSelected(ctx context.Context, cfg *config.Config) (bucketgate.Bucket, func() error, error) {
	name := cfg.Bucket.Binding
	if name == "" {
		return nil, nil, fmt.Errorf("no binding selected: set --binding or %s", gatehttp.BindingEnvVar)
	}

	b, ok := cfg.Bindings[name]
	if !ok {
		return nil, nil, fmt.Errorf("binding %q not found", name)
	}

	set, err := binding.Open(ctx, &config.Config{Bindings: map[string]config.BindingConfig{name: b}})
	if err != nil {
		return nil, nil, err
	}

	return set.Buckets()[name], set.Close, nil
}
