package contextkeys

// Custom key type to avoid collisions with other packages writing to context.
type contextKey string

// DBContextKey is the key under which the *gorm.DB handle (pool or per-request
// transaction) is stored by the DB middleware.
const DBContextKey = contextKey("db")
