package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	product, err := NewProduct("keyboard", 10000, 100)
	require.NoError(t, err)
	assert.Equal(t, "keyboard", product.Name)
	assert.Equal(t, int64(10000), product.Price)
	assert.Equal(t, 100, product.Stock)

	_, err = NewProduct("bad", -1, 10)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("bad", 10, -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCanReduce(t *testing.T) {
	product := &Product{Name: "keyboard", Stock: 5}

	require.NoError(t, product.CanReduce(5))

	require.ErrorIs(t, product.CanReduce(0), ErrInvalidQuantity)
	require.ErrorIs(t, product.CanReduce(-3), ErrInvalidQuantity)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, product.CanReduce(6), &stockErr)
	assert.Equal(t, "keyboard", stockErr.ProductName)
}

func TestCanRestore(t *testing.T) {
	product := &Product{Name: "keyboard", Stock: 0}
	require.NoError(t, product.CanRestore(10))
	require.ErrorIs(t, product.CanRestore(0), ErrInvalidQuantity)
}
