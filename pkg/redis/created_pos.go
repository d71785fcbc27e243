package redis

import (
	"context"
	"sort"
	"strings"

	rd "github.com/redis/go-redis/v9"
)

// CreatedPO is one entry of the created set: the PO that covers an
// ingredient at a vendor.
type CreatedPO struct {
	VendorID     string
	IngredientID string
	POID         string
}

// CreatedPOField is the hash field of one vendor and ingredient pair.
func CreatedPOField(vendorID, ingredientID string) string {
	return vendorID + ":" + ingredientID
}

// CreatedPOs reads the created set ordered by field. A missing key is an
// empty set.
func CreatedPOs(ctx context.Context, rdb *rd.Client) ([]CreatedPO, error) {
	m, err := rdb.HGetAll(ctx, CreatedPOsKey()).Result()
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]CreatedPO, 0, len(fields))
	for _, f := range fields {
		vendorID, ingredientID, ok := strings.Cut(f, ":")
		if !ok {
			// legacy ingredient-only field
			vendorID, ingredientID = "", f
		}
		out = append(out, CreatedPO{VendorID: vendorID, IngredientID: ingredientID, POID: m[f]})
	}
	return out, nil
}

// MarkPOCreated records that poID covers ingredientID at vendorID.
func MarkPOCreated(ctx context.Context, rdb *rd.Client, vendorID, ingredientID, poID string) error {
	return rdb.HSet(ctx, CreatedPOsKey(), CreatedPOField(vendorID, ingredientID), poID).Err()
}

// UnmarkPOCreated removes the entry only while it still points at its PO,
// so a PO raised after the read is not dropped by a stale reconcile.
func UnmarkPOCreated(ctx context.Context, rdb *rd.Client, entry CreatedPO) (bool, error) {
	field := entry.IngredientID
	if entry.VendorID != "" {
		field = CreatedPOField(entry.VendorID, entry.IngredientID)
	}
	n, err := rdb.Eval(ctx, luaHDelIfMatch, []string{CreatedPOsKey()}, field, entry.POID).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const luaHDelIfMatch = `
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  return redis.call('HDEL', KEYS[1], ARGV[1])
end
return 0
`
