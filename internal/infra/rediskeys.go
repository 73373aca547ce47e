package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "servicemap"
)

// Ключи (состояние)
const (
	RedisKeySnapshot   = RedisNamespace + ":snapshot:current"
	RedisKeyLockWarmup = RedisNamespace + ":lock:warmup:snapshot"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSnapshotUpdate - новый датасет загружен на одном из инстансов, payload = dataset id
	RedisChanSnapshotUpdate = RedisNamespace + ":snapshot:update-signal"
)
