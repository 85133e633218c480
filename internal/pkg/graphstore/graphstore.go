// Package graphstore mirrors the prerequisite graph into Neo4j for ad-hoc
// exploration. The mirror is write-only; every answer of the service comes
// from the in-memory snapshot.
package graphstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/biograph/insights/internal/curriculum"
)

// Config holds the Neo4j connection settings. An empty URI disables the mirror.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// Client writes graph snapshots to Neo4j. A nil *Client is valid and does nothing.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	log      zerolog.Logger
}

// New connects to Neo4j. It returns a nil client when cfg.URI is empty.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, nil
	}
	user := cfg.User
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verify connectivity: %w", err)
	}

	return &Client{
		driver:   driver,
		database: cfg.Database,
		log:      log.With().Str("component", "graphstore").Logger(),
	}, nil
}

// Close releases the driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

var schemaStatements = []string{
	`CREATE CONSTRAINT discipline_id_unique IF NOT EXISTS FOR (d:Discipline) REQUIRE d.id IS UNIQUE`,
	`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
}

const syncCoursesCypher = `
UNWIND $courses AS c
MERGE (n:Course {id: c.id})
SET n.name = c.name, n.synced_at = $synced_at
`

const syncDisciplinesCypher = `
UNWIND $disciplines AS d
MERGE (n:Discipline {id: d.id})
SET n.name = d.name, n.synced_at = $synced_at
`

const syncRequiresCypher = `
UNWIND $requires AS r
MATCH (d:Discipline {id: r.from})
MATCH (p:Discipline {id: r.to})
MERGE (d)-[e:REQUIRES]->(p)
SET e.synced_at = $synced_at
`

const syncOfferedCypher = `
UNWIND $offered AS o
MATCH (d:Discipline {id: o.discipline})
MATCH (c:Course {id: o.course})
MERGE (d)-[e:OFFERED_IN]->(c)
SET e.synced_at = $synced_at
`

// Anything not touched by this sync is stale.
const pruneEdgesCypher = `
MATCH ()-[e:REQUIRES|OFFERED_IN]->() WHERE e.synced_at <> $synced_at
DELETE e
`

const pruneNodesCypher = `
MATCH (n) WHERE (n:Discipline OR n:Course) AND n.synced_at <> $synced_at
DETACH DELETE n
`

var syncStatements = []string{
	syncCoursesCypher,
	syncDisciplinesCypher,
	syncRequiresCypher,
	syncOfferedCypher,
	pruneEdgesCypher,
	pruneNodesCypher,
}

// SyncParams builds the query parameters for one sync.
func SyncParams(snap *curriculum.Snapshot, g *curriculum.Graph, syncedAt time.Time) map[string]any {
	courses := make([]map[string]any, 0)
	for _, c := range snap.Courses() {
		courses = append(courses, map[string]any{"id": c.ID, "name": c.Name})
	}

	disciplines := make([]map[string]any, 0, g.Len())
	offered := make([]map[string]any, 0)
	for _, d := range snap.Disciplines() {
		disciplines = append(disciplines, map[string]any{"id": d.ID, "name": d.Name})
		for _, cid := range d.CourseIDs {
			if _, ok := snap.Course(cid); ok {
				offered = append(offered, map[string]any{"discipline": d.ID, "course": cid})
			}
		}
	}

	requires := make([]map[string]any, 0)
	for _, e := range g.Edges() {
		requires = append(requires, map[string]any{"from": e.From, "to": e.To})
	}

	return map[string]any{
		"courses":     courses,
		"disciplines": disciplines,
		"requires":    requires,
		"offered":     offered,
		"synced_at":   syncedAt.UTC().Format(time.RFC3339Nano),
	}
}

// SyncGraph replaces the mirrored graph with the given snapshot.
func (c *Client) SyncGraph(ctx context.Context, snap *curriculum.Snapshot) error {
	if c == nil || c.driver == nil {
		return nil
	}
	g, err := snap.Graph()
	if err != nil {
		return fmt.Errorf("graphstore: %w", err)
	}
	params := SyncParams(snap, g, time.Now())

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	for _, q := range schemaStatements {
		if res, err := session.Run(ctx, q, nil); err != nil {
			c.log.Warn().Err(err).Msg("neo4j schema init failed (continuing)")
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range syncStatements {
			res, err := tx.Run(ctx, q, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graphstore: sync: %w", err)
	}

	c.log.Debug().Int("disciplines", g.Len()).Msg("Prerequisite graph mirrored")
	return nil
}
