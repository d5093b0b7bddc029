package sink

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestly/ingestly/internal/pipeline"
)

func TestFirestore_Insert(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	f, err := NewFirestore(ctx, "ingestly-test")
	require.NoError(t, err)
	defer f.Close()

	row := pipeline.Row{
		"source": "indian_news_pipeline",
		"status": true,
		"data":   map[string]any{"article_count": 3},
	}
	require.NoError(t, f.Insert(ctx, "news_daily_test", row))
	require.NoError(t, f.Insert(ctx, "news_daily_test", row))

	docs, err := f.client.Collection("news_daily_test").Where("source", "==", "indian_news_pipeline").Documents(ctx).GetAll()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(docs), 2)
}
