package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/divvy/internal/models"
)

func TestChain_FallsBack(t *testing.T) {
	primary := &mockProvider{name: "yahoo", quoteErr: NewFetchError("yahoo", "0005.HK", "quote", nil, errors.New("503"))}
	fallback := &mockProvider{name: "eodhd", quote: &models.Quote{Price: 61.2}}
	chain := NewChain(nil, primary, fallback)

	q, err := chain.GetQuote(context.Background(), "0005.HK")
	require.NoError(t, err)
	assert.InDelta(t, 61.2, q.Price, 1e-9)
	assert.Equal(t, 1, primary.callCount("quote"))
	assert.Equal(t, 1, fallback.callCount("quote"))
	assert.Equal(t, "chain:yahoo:eodhd", chain.Name())
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &mockProvider{quote: &models.Quote{Price: 1}}
	fallback := &mockProvider{quote: &models.Quote{Price: 2}}

	q, err := NewChain(nil, primary, nil, fallback).GetQuote(context.Background(), "VZ")
	require.NoError(t, err)
	assert.InDelta(t, 1, q.Price, 1e-9)
	assert.Equal(t, 0, fallback.callCount("quote"))
}

func TestChain_AllFailKeepsKind(t *testing.T) {
	a := &mockProvider{quoteErr: NewFetchError("a", "X", "quote", ErrProviderError, nil)}
	b := &mockProvider{quoteErr: NewFetchError("b", "X", "quote", ErrSymbolNotFound, nil)}

	_, err := NewChain(nil, a, b).GetQuote(context.Background(), "X")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestChain_UnclassifiedErrorBecomesProviderError(t *testing.T) {
	a := &mockProvider{financialsErr: errors.New("bad gateway")}

	_, err := NewChain(nil, a).GetFinancials(context.Background(), "X")
	assert.ErrorIs(t, err, ErrProviderError)
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	a := &mockProvider{quote: &models.Quote{Price: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain(nil, a).GetQuote(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.callCount("quote"))
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(nil).GetQuote(context.Background(), "X")
	assert.ErrorIs(t, err, ErrProviderError)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Equal(t, ErrProviderTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, ErrSymbolNotFound, Classify(NewFetchError("p", "s", "quote", ErrSymbolNotFound, nil)))
	assert.Equal(t, ErrProviderError, Classify(errors.New("x")))
	assert.Equal(t, ErrPartialData, Classify(ErrPartialData))
}

func TestFetchError_Message(t *testing.T) {
	err := NewFetchError("eodhd", "0005.HK", "quote", nil, errors.New("status 500"))
	assert.Equal(t, "eodhd quote 0005.HK: provider error: status 500", err.Error())
	assert.ErrorIs(t, err, ErrProviderError)
}

func TestChain_NewsSkipsProvidersWithoutHeadlines(t *testing.T) {
	plain := &mockProvider{name: "eodhd"}
	yahoo := &newsProvider{
		mockProvider: &mockProvider{name: "yahoo"},
		news:         []models.NewsItem{{Title: "Dividend raised", Link: "https://example.com/1"}},
	}

	items, err := NewChain(nil, plain, yahoo).GetNews(context.Background(), "VZ", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dividend raised", items[0].Title)
	assert.Equal(t, 1, yahoo.callCount("news"))
}

func TestChain_NewsUnsupported(t *testing.T) {
	_, err := NewChain(nil, &mockProvider{name: "eodhd"}).GetNews(context.Background(), "VZ", 5)
	assert.ErrorIs(t, err, ErrNewsUnsupported)
	assert.ErrorIs(t, err, ErrProviderError)
}
