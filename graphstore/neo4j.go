package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/moviequery"
)

// Access modes accepted by Neo4jConfig.AccessMode.
const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// Neo4jConfig configures the connection to a Neo4j (or Bolt-compatible) server.
type Neo4jConfig struct {
	// URI is the Bolt or neo4j:// URI of the server.
	URI string `yaml:"uri"`

	// Username and Password are required basic auth credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Database selects a named database. Empty uses the server default.
	Database string `yaml:"database,omitempty"`

	// AccessMode is "read" (default) or "write". Generated queries run in this mode.
	AccessMode string `yaml:"access_mode,omitempty"`
}

// Validate checks that credentials are present and the access mode is known.
func (c Neo4jConfig) Validate() error {
	var missing []string
	if c.URI == "" {
		missing = append(missing, "uri")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: neo4j %s must be set", moviequery.ErrMissingCredentials, strings.Join(missing, ", "))
	}

	switch c.AccessMode {
	case "", AccessRead, AccessWrite:
		return nil
	default:
		return fmt.Errorf("%w: unknown neo4j access mode %q", moviequery.ErrInvalidConfig, c.AccessMode)
	}
}

// Neo4jOption configures a Neo4jStore.
type Neo4jOption func(*Neo4jStore)

// WithLogger sets the structured logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Neo4jOption {
	return func(s *Neo4jStore) {
		s.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer; every Run produces one span.
func WithTracer(tracer trace.Tracer) Neo4jOption {
	return func(s *Neo4jStore) {
		s.tracer = tracer
	}
}

// Neo4jStore implements Store on the official Neo4j Go driver.
// The driver owns a connection pool; every Run borrows one session and closes
// it before returning.
type Neo4jStore struct {
	driver     neo4j.DriverWithContext
	database   string
	accessMode neo4j.AccessMode
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewNeo4jStore validates cfg and creates the driver. It does not dial;
// use Ping to verify connectivity.
func NewNeo4jStore(cfg Neo4jConfig, opts ...Neo4jOption) (*Neo4jStore, error) {
	const op = "graphstore.NewNeo4jStore"

	if err := cfg.Validate(); err != nil {
		return nil, moviequery.NewConfigurationError(op, err)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, moviequery.NewConfigurationError(op, fmt.Errorf("create neo4j driver: %w", err))
	}

	s := &Neo4jStore{
		driver:     driver,
		database:   cfg.Database,
		accessMode: neo4j.AccessModeRead,
	}
	if cfg.AccessMode == AccessWrite {
		s.accessMode = neo4j.AccessModeWrite
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}

	return s, nil
}

// Run executes query in an auto-commit transaction on a fresh session.
func (s *Neo4jStore) Run(ctx context.Context, query string) ([]Record, error) {
	ctx, span := s.tracer.Start(ctx, "graphstore.run", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.statement", query),
	)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   s.accessMode,
		DatabaseName: s.database,
	})
	defer moviequery.CloseContextWithLog(ctx, session, s.logger, "neo4j session")

	start := time.Now()
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, err := result.Collect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows := make([]Record, 0, len(records))
	for _, rec := range records {
		rows = append(rows, convertRecord(rec))
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	s.logger.Debug("query executed",
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds())

	return rows, nil
}

// Ping verifies that the server is reachable with the configured credentials.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return moviequery.NewNetworkError("Neo4jStore.Ping", err)
	}
	return nil
}

// Close releases the driver and its pooled connections.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func convertRecord(rec *neo4j.Record) Record {
	row := make(Record, len(rec.Keys))
	for i, key := range rec.Keys {
		row[key] = convertValue(rec.Values[i])
	}
	return row
}

// convertValue maps driver values onto package types so that callers and the
// JSON encoder never see driver structs.
func convertValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return convertNode(val)
	case neo4j.Relationship:
		return convertRelationship(val)
	case neo4j.Path:
		p := Path{
			Nodes:         make([]Node, 0, len(val.Nodes)),
			Relationships: make([]Relationship, 0, len(val.Relationships)),
		}
		for _, n := range val.Nodes {
			p.Nodes = append(p.Nodes, convertNode(n))
		}
		for _, r := range val.Relationships {
			p.Relationships = append(p.Relationships, convertRelationship(r))
		}
		return p
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case map[string]any:
		return convertProps(val)
	case neo4j.Date:
		return time.Time(val).Format(time.DateOnly)
	case neo4j.LocalDateTime:
		return time.Time(val).Format("2006-01-02T15:04:05.999999999")
	case neo4j.LocalTime:
		return time.Time(val).Format("15:04:05.999999999")
	case neo4j.Time:
		return time.Time(val).Format("15:04:05.999999999Z07:00")
	case neo4j.Duration:
		return val.String()
	default:
		return v
	}
}

func convertNode(n neo4j.Node) Node {
	return Node{
		ElementID: n.ElementId,
		Labels:    append([]string(nil), n.Labels...),
		Props:     convertProps(n.Props),
	}
}

func convertRelationship(r neo4j.Relationship) Relationship {
	return Relationship{
		ElementID:      r.ElementId,
		StartElementID: r.StartElementId,
		EndElementID:   r.EndElementId,
		Type:           r.Type,
		Props:          convertProps(r.Props),
	}
}

func convertProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = convertValue(v)
	}
	return out
}
