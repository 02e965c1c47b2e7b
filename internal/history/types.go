package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/DryDB/internal/database"
)

// DefaultLimit is the number of executed queries kept per connection.
const DefaultLimit = 100

// Connection is a saved connection target. Credentials are stored as given,
// password included.
type Connection struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Credentials database.Credentials `json:"credentials"`
	CreatedAt   time.Time            `json:"createdAt"`
	LastUsed    *time.Time           `json:"lastUsed,omitempty"`
}

// NewConnection names a connection after its database and dialect.
func NewConnection(creds database.Credentials) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		Name:        creds.DisplayName(),
		Credentials: creds,
	}
}

// QueryRecord is one executed statement.
type QueryRecord struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connectionId"`
	Query        string    `json:"query"`
	ExecutedAt   time.Time `json:"executedAt"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// NewQueryRecord records the outcome of running query on connectionID.
func NewQueryRecord(connectionID, query string, runErr error) *QueryRecord {
	q := &QueryRecord{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		Query:        query,
		Success:      runErr == nil,
	}
	if runErr != nil {
		q.Error = runErr.Error()
	}
	return q
}
