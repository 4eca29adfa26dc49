package db

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/logging"
)

type Session struct {
	*gocql.Session
}

// NewSession connects to the ScyllaDB cluster with quorum consistency and
// a bounded retry policy.
func NewSession(cfg config.ScyllaConfig) (*Session, error) {
	return NewSessionWithKeyspace(cfg, cfg.Keyspace)
}

// NewSessionWithKeyspace connects to a specific keyspace, used by the
// schema scripts to reach the system keyspace first.
func NewSessionWithKeyspace(cfg config.ScyllaConfig, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	lg := logging.L(); lg.Info().Strs("hosts", cfg.Hosts).Str("keyspace", keyspace).Msg("connected to ScyllaDB cluster")
	return &Session{Session: session}, nil
}
