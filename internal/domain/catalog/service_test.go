package catalog_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/testdb"
)

const notebookSchema = `{
  "type": "object",
  "properties": {
    "sheets": {"type": "integer", "minimum": 1},
    "ruling": {"type": "string", "enum": ["plain", "lined", "grid"]}
  },
  "required": ["sheets"]
}`

func TestCreateCategory(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	t.Run("default schema", func(t *testing.T) {
		category, err := env.Catalog.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Art supplies"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"$schema":"https://json-schema.org/draft/2020-12/schema","type":"object","properties":{},"required":[]}`, string(category.ProductSchema))
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := env.Catalog.CreateCategory(ctx, &catalog.CategoryRequest{Name: "General"})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Equal(t, "name", apperror.FieldOf(err))
	})

	t.Run("schema that does not compile", func(t *testing.T) {
		_, err := env.Catalog.CreateCategory(ctx, &catalog.CategoryRequest{
			Name:          "Broken",
			ProductSchema: json.RawMessage(`{"type": 12}`),
		})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Equal(t, "product_schema", apperror.FieldOf(err))
	})
}

func TestCreateProductValidatesAttributes(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	category, err := env.Catalog.CreateCategory(ctx, &catalog.CategoryRequest{
		Name:          "Spiral notebooks",
		ProductSchema: json.RawMessage(notebookSchema),
	})
	require.NoError(t, err)

	base := catalog.ProductCreateRequest{
		Name:          "A5 notebook",
		SalePrice:     decimal.RequireFromString("3.50"),
		PurchasePrice: decimal.RequireFromString("2.00"),
		CategoryID:    category.ID,
	}

	t.Run("missing required attribute", func(t *testing.T) {
		req := base
		req.Attributes = map[string]interface{}{"ruling": "lined"}
		_, err := env.Catalog.CreateProduct(ctx, &req, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("attribute out of enum", func(t *testing.T) {
		req := base
		req.Attributes = map[string]interface{}{"sheets": 80, "ruling": "dotted"}
		_, err := env.Catalog.CreateProduct(ctx, &req, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Contains(t, apperror.FieldOf(err), "attributes")
	})

	t.Run("valid attributes", func(t *testing.T) {
		req := base
		req.Attributes = map[string]interface{}{"sheets": 80, "ruling": "grid"}
		product, err := env.Catalog.CreateProduct(ctx, &req, nil)
		require.NoError(t, err)
		assert.Equal(t, "grid", product.Attributes["ruling"])
		assert.Equal(t, 0, product.Stock)
	})

	t.Run("sale price below purchase price", func(t *testing.T) {
		req := base
		req.Attributes = map[string]interface{}{"sheets": 80}
		req.SalePrice = decimal.RequireFromString("1.00")
		_, err := env.Catalog.CreateProduct(ctx, &req, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Equal(t, "sale_price", apperror.FieldOf(err))
	})

	t.Run("unknown category", func(t *testing.T) {
		req := base
		req.CategoryID = 999
		_, err := env.Catalog.CreateProduct(ctx, &req, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})
}

func TestCreateProductRecordsOpeningStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)

	product := env.Product(t, "Blue pen", 12, "1.20")
	assert.Equal(t, 12, product.Stock)

	movements := env.Movements(t, product.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, ledger.MovementTypeAdjustment, movements[0].MovementType)
	assert.Equal(t, 0, movements[0].PreviousStock)
	assert.Equal(t, 12, movements[0].NewStock)

	require.NoError(t, env.Ledger.Reconcile(context.Background(), product.ID))
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Eraser", 5, "0.80")

	name := "White eraser"
	minimum := 10
	updated, err := env.Catalog.UpdateProduct(ctx, product.ID, &catalog.ProductUpdateRequest{
		Name:         &name,
		MinimumStock: &minimum,
	})
	require.NoError(t, err)
	assert.Equal(t, "White eraser", updated.Name)
	assert.Equal(t, 5, updated.Stock)
	assert.True(t, updated.IsLowStock())

	low, err := env.Catalog.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, product.ID, low[0].ID)
}

func TestUpdateAttributesMergesAndReplaces(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Marker", 1, "2.00")

	merged, err := env.Catalog.UpdateAttributes(ctx, product.ID, map[string]interface{}{"color": "red"}, false)
	require.NoError(t, err)
	merged, err = env.Catalog.UpdateAttributes(ctx, product.ID, map[string]interface{}{"tip": "fine"}, false)
	require.NoError(t, err)
	assert.Equal(t, "red", merged.Attributes["color"])
	assert.Equal(t, "fine", merged.Attributes["tip"])

	replaced, err := env.Catalog.UpdateAttributes(ctx, product.ID, map[string]interface{}{"color": "black"}, true)
	require.NoError(t, err)
	assert.Equal(t, "black", replaced.Attributes["color"])
	assert.NotContains(t, replaced.Attributes, "tip")
}

func TestSetActive(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Ruler", 0, "1.00")

	inactive, err := env.Catalog.SetActive(ctx, product.ID, false)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	_, err = env.Catalog.SetActive(ctx, 999, false)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestSupplierProductCounts(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	supplier := env.Supplier(t, "acme")
	_, err := env.Catalog.CreateProduct(ctx, &catalog.ProductCreateRequest{
		Name:        "Stapler",
		SalePrice:   decimal.RequireFromString("9.99"),
		CategoryID:  testdb.GeneralCategoryID,
		SupplierIDs: []uint{supplier.ID},
	}, nil)
	require.NoError(t, err)

	summaries, err := env.Catalog.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].ProductCount)

	_, err = env.Catalog.CreateSupplier(ctx, &catalog.SupplierRequest{Name: "Acme again", Email: "ACME@suppliers.example.com"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestListProductsFilters(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	env.Product(t, "Pencil HB", 10, "0.50")
	env.Product(t, "Pencil 2B", 10, "0.50")
	env.Product(t, "Glue stick", 10, "1.50")

	result, err := env.Catalog.ListProducts(ctx, &catalog.ProductListRequest{Search: "pencil"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Pagination.Total)
	assert.Equal(t, 20, result.Pagination.Limit)
}
