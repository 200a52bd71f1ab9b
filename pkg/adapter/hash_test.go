package adapter_test

import (
	"context"
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter"
)

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	embedder := adapter.NewHashEmbedder(64)

	a1, err := embedder.Embed(ctx, "hello")
	gt.NoError(t, err)
	a2, err := embedder.Embed(ctx, "hello")
	gt.NoError(t, err)
	b, err := embedder.Embed(ctx, "goodbye")
	gt.NoError(t, err)

	gt.A(t, a1).Length(64)
	gt.Equal(t, a1, a2)
	gt.NotEqual(t, a1, b)

	var norm float64
	for _, v := range a1 {
		norm += float64(v) * float64(v)
	}
	gt.True(t, math.Abs(norm-1) < 1e-5)
}

func TestHashEmbedderDefaultDimensions(t *testing.T) {
	vec, err := adapter.NewHashEmbedder(0).Embed(context.Background(), "x")
	gt.NoError(t, err)
	gt.A(t, vec).Length(384)
}
