package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

const variantColumns = `id, product_id, sku, stock_quantity, in_stock, updated_at`

// variantWithAttributes selects a variant plus its attribute values
// aggregated as a JSON array.
const variantWithAttributes = `
	SELECT v.id, v.product_id, v.sku, v.stock_quantity, v.in_stock, v.updated_at,
		COALESCE(
			json_agg(json_build_object('attribute_id', a.attribute_id, 'value_id', a.value_id)
				ORDER BY a.attribute_id) FILTER (WHERE a.variant_id IS NOT NULL),
			'[]'
		)::text
	FROM product_variants v
	LEFT JOIN variant_attribute_values a ON a.variant_id = v.id`

// VariantRepository implements repository.VariantRepository.
type VariantRepository struct {
	db database.DBTX
}

// NewVariantRepository creates a PostgreSQL-backed variant repository.
func NewVariantRepository(db database.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.StockQuantity, &v.InStock, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVariantWithAttributes(row pgx.Row) (*domain.Variant, error) {
	var (
		v     domain.Variant
		attrs string
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.StockQuantity, &v.InStock, &v.UpdatedAt, &attrs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attrs), &v.Attributes); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns a variant with its attribute values.
func (r *VariantRepository) GetByID(ctx context.Context, variantID string) (v *domain.Variant, err error) {
	if !isUUID(variantID) {
		return nil, apperrors.NotFound("variant", variantID)
	}
	query := variantWithAttributes + ` WHERE v.id = $1 GROUP BY v.id`

	ctx, end := database.TraceQuery(ctx, "variant.GetByID", query)
	defer func() { end(err) }()

	v, err = scanVariantWithAttributes(r.db.QueryRow(ctx, query, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, apperrors.Persistence("get variant", err)
	}
	return v, nil
}

// Lock returns the variant row locked for update. Callers must lock the
// parent inventory row first.
func (r *VariantRepository) Lock(ctx context.Context, variantID string) (v *domain.Variant, err error) {
	if !isUUID(variantID) {
		return nil, apperrors.NotFound("variant", variantID)
	}
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "variant.Lock", query)
	defer func() { end(err) }()

	v, err = scanVariant(r.db.QueryRow(ctx, query, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, apperrors.Persistence("lock variant", err)
	}
	return v, nil
}

// ApplyDelta adds delta to the variant's quantity under policy and rewrites
// in_stock from the result in the same statement.
func (r *VariantRepository) ApplyDelta(ctx context.Context, variantID string, delta int, policy domain.StockPolicy) (v *domain.Variant, err error) {
	if !isUUID(variantID) {
		return nil, apperrors.NotFound("variant", variantID)
	}
	query := `
		UPDATE product_variants
		SET stock_quantity = GREATEST(stock_quantity + $2, 0),
			in_stock = GREATEST(stock_quantity + $2, 0) > 0,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + variantColumns
	if policy == domain.PolicyStrict {
		query = `
		UPDATE product_variants
		SET stock_quantity = stock_quantity + $2,
			in_stock = stock_quantity + $2 > 0,
			updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING ` + variantColumns
	}

	ctx, end := database.TraceQuery(ctx, "variant.ApplyDelta", query)
	defer func() { end(err) }()

	v, err = scanVariant(r.db.QueryRow(ctx, query, variantID, delta))
	if err == nil {
		return v, nil
	}
	if database.IsNumericOutOfRange(err) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("stock change %d overflows stock of variant %s", delta, variantID))
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Persistence("apply variant delta", err)
	}
	if policy != domain.PolicyStrict {
		return nil, apperrors.NotFound("variant", variantID)
	}
	if _, getErr := r.GetByID(ctx, variantID); getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.InsufficientStock("variant", variantID, delta)
}

// ToggleAvailability inverts in_stock without touching the quantity.
func (r *VariantRepository) ToggleAvailability(ctx context.Context, variantID string) (v *domain.Variant, err error) {
	if !isUUID(variantID) {
		return nil, apperrors.NotFound("variant", variantID)
	}
	query := `
		UPDATE product_variants SET in_stock = NOT in_stock, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + variantColumns

	ctx, end := database.TraceQuery(ctx, "variant.ToggleAvailability", query)
	defer func() { end(err) }()

	v, err = scanVariant(r.db.QueryRow(ctx, query, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, apperrors.Persistence("toggle variant availability", err)
	}
	return v, nil
}

// ListByProduct returns every variant of a product ordered by SKU.
func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) (variants []domain.Variant, err error) {
	variants = []domain.Variant{}
	if !isUUID(productID) {
		return variants, nil
	}
	query := variantWithAttributes + ` WHERE v.product_id = $1 GROUP BY v.id ORDER BY v.sku, v.id`

	ctx, end := database.TraceQuery(ctx, "variant.ListByProduct", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, apperrors.Persistence("list variants", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, scanErr := scanVariantWithAttributes(rows)
		if scanErr != nil {
			return nil, apperrors.Persistence("scan variant", scanErr)
		}
		variants = append(variants, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate variants", err)
	}
	return variants, nil
}

// FindBySelection resolves the variant whose attribute values are exactly
// the selected pairs: every pair matches and the variant has no other
// attributes. A partial selection matches nothing. More than one match can
// only come from duplicate combinations and is rejected as ambiguous.
func (r *VariantRepository) FindBySelection(ctx context.Context, productID string, selection domain.AttributeSelection) (v *domain.Variant, err error) {
	if err := selection.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if !isUUID(productID) {
		return nil, apperrors.NotFound("product", productID)
	}

	values := selection.Values()
	attrIDs := make([]string, len(values))
	valueIDs := make([]string, len(values))
	for i, av := range values {
		attrIDs[i] = av.AttributeID
		valueIDs[i] = av.ValueID
	}

	query := `
		SELECT v.id, v.product_id, v.sku, v.stock_quantity, v.in_stock, v.updated_at
		FROM product_variants v
		JOIN variant_attribute_values a ON a.variant_id = v.id
		LEFT JOIN unnest($2::text[], $3::text[]) AS s(attribute_id, value_id)
			ON s.attribute_id = a.attribute_id AND s.value_id = a.value_id
		WHERE v.product_id = $1
		GROUP BY v.id
		HAVING COUNT(*) = $4 AND COUNT(s.attribute_id) = $4
		LIMIT 2`

	ctx, end := database.TraceQuery(ctx, "variant.FindBySelection", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID, attrIDs, valueIDs, len(values))
	if err != nil {
		return nil, apperrors.Persistence("find variant by selection", err)
	}
	defer rows.Close()

	var matches []*domain.Variant
	for rows.Next() {
		m, scanErr := scanVariant(rows)
		if scanErr != nil {
			return nil, apperrors.Persistence("scan variant", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate variants", err)
	}

	switch len(matches) {
	case 0:
		return nil, apperrors.NotFound("variant", domain.CombinationKey(values))
	case 1:
		matches[0].Attributes = values
		return matches[0], nil
	default:
		return nil, apperrors.InvalidInput("attribute selection matches more than one variant")
	}
}

// CountByProduct returns how many variants a product has.
func (r *VariantRepository) CountByProduct(ctx context.Context, productID string) (n int, err error) {
	if !isUUID(productID) {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM product_variants WHERE product_id = $1`

	ctx, end := database.TraceQuery(ctx, "variant.CountByProduct", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, productID).Scan(&n); err != nil {
		return 0, apperrors.Persistence("count variants", err)
	}
	return n, nil
}

// ListProductIDsWithVariants returns the distinct products that own at
// least one variant.
func (r *VariantRepository) ListProductIDsWithVariants(ctx context.Context) (ids []string, err error) {
	query := `SELECT DISTINCT product_id FROM product_variants ORDER BY product_id`

	ctx, end := database.TraceQuery(ctx, "variant.ListProductIDs", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Persistence("list variant products", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, apperrors.Persistence("scan variant product", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate variant products", err)
	}
	return ids, nil
}

// ListStockAlerts returns variants at or below their product's threshold,
// including those at zero. Products without an inventory row fall back to
// defaultThreshold.
func (r *VariantRepository) ListStockAlerts(ctx context.Context, defaultThreshold int) (alerts []domain.VariantAlert, err error) {
	query := `
		SELECT v.id, v.product_id, v.sku, v.stock_quantity, COALESCE(i.stock_threshold, $1)
		FROM product_variants v
		LEFT JOIN inventory i ON i.product_id = v.product_id
		WHERE v.stock_quantity <= COALESCE(i.stock_threshold, $1)
		ORDER BY v.stock_quantity ASC, v.product_id, v.sku`

	ctx, end := database.TraceQuery(ctx, "variant.ListStockAlerts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, defaultThreshold)
	if err != nil {
		return nil, apperrors.Persistence("list variant stock alerts", err)
	}
	defer rows.Close()

	alerts = []domain.VariantAlert{}
	for rows.Next() {
		var a domain.VariantAlert
		if err = rows.Scan(&a.VariantID, &a.ProductID, &a.SKU, &a.StockQuantity, &a.Threshold); err != nil {
			return nil, apperrors.Persistence("scan variant stock alert", err)
		}
		alerts = append(alerts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate variant stock alerts", err)
	}
	return alerts, nil
}
