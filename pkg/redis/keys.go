package redis

import "fmt"

// POLockKey serializes purchase order creation for one vendor and ingredient.
func POLockKey(vendorID, ingredientID string) string {
	return fmt.Sprintf("production_queue:po:lock:%s:%s", vendorID, ingredientID)
}

// CreatedPOsKey is the hash of "vendor id:ingredient id" -> purchase order id
// for POs the operations team already raised.
func CreatedPOsKey() string {
	return "production_queue:po:created"
}

// RateLimitKey holds one caller's sliding window for a limited route.
func RateLimitKey(prefix, subject string) string {
	return fmt.Sprintf("production_queue:ratelimit:%s:%s", prefix, subject)
}
