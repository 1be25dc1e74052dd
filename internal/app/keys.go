package app

import "fmt"

// Fast-store key layout. One lock per activity serializes admission; a second,
// narrower lock serializes durable stock settlement on payment; a per-order
// lock makes pay and cancel mutually exclusive.
func activityLockKey(activityID int64) string {
	return fmt.Sprintf("seckill:activity:lock:%d", activityID)
}

func activityStockKey(activityID int64) string {
	return fmt.Sprintf("seckill:activity:stock:%d", activityID)
}

func productStockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

func orderLockKey(orderID int64) string {
	return fmt.Sprintf("seckill:order:lock:%d", orderID)
}

func stockUpdateLockKey(activityID int64) string {
	return fmt.Sprintf("seckill:stock:update:%d", activityID)
}

func orderStatusKey(orderID int64) string {
	return fmt.Sprintf("order:status:%d", orderID)
}

func rateLimitKey(scope string, parts ...any) string {
	key := "seckill:ratelimit:" + scope
	for _, p := range parts {
		key = fmt.Sprintf("%s:%v", key, p)
	}
	return key
}
