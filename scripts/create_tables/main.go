package main

import (
	"fmt"
	"log"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sysSession, err := db.NewSessionWithKeyspace(cfg.Scylla, "system")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB system keyspace: %v", err)
	}

	createKeyspace := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`,
		cfg.Scylla.Keyspace,
	)
	if err := sysSession.Query(createKeyspace).Exec(); err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}
	sysSession.Close()

	session, err := db.NewSession(cfg.Scylla)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	// Messages partitioned by room, newest first so the history read is
	// the natural page.
	err = session.Query(`CREATE TABLE IF NOT EXISTS messages (
		room_id text,
		id bigint,
		sender_id text,
		sender_name text,
		content text,
		timestamp timestamp,
		is_system boolean,
		PRIMARY KEY (room_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create messages table: %v", err)
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS room_activity (
		room_id text,
		last_message_at timestamp,
		last_sender text,
		PRIMARY KEY (room_id)
	)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create room_activity table: %v", err)
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS room_activity_counters (
		room_id text,
		message_count counter,
		PRIMARY KEY (room_id)
	)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create room_activity_counters table: %v", err)
	}

	log.Println("Tables created successfully.")
}
