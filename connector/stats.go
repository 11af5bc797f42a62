package connector

// ConnectionStats reports connection pool usage.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
}
