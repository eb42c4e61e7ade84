package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/llm"
)

// Stage names. Execution always starts at StageQueryDB and stops at StageEnd.
const (
	StageQueryDB = "query_db"
	StageReply   = "reply"
	StageEnd     = "end"
)

// stageFunc computes one stage's contribution to the state.
type stageFunc func(ctx context.Context, s State) (Update, error)

// Pipeline is the two-stage question answering workflow. It holds only
// read-only collaborators and is safe for concurrent use.
type Pipeline struct {
	introspector *graphstore.Introspector
	synthesizer  *QuerySynthesizer
	executor     *Executor
	answerer     *AnswerSynthesizer

	synthesisSlot llm.SlotDefinition
	replySlot     llm.SlotDefinition
	guard         *cypher.Guard
	tracker       llm.TokenTracker

	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *pipelineMetrics

	stages      map[string]stageFunc
	transitions map[string]string
}

// New wires a Pipeline over a graph store and a language model client.
func New(store graphstore.Store, client llm.Client, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, moviequery.NewConfigurationError("pipeline.New", fmt.Errorf("%w: graph store is required", moviequery.ErrInvalidConfig))
	}
	if client == nil {
		return nil, moviequery.NewConfigurationError("pipeline.New", fmt.Errorf("%w: language model client is required", moviequery.ErrInvalidConfig))
	}

	synthesis, reply := DefaultSlots()
	p := &Pipeline{
		synthesisSlot: synthesis,
		replySlot:     reply,
		logger:        slog.Default(),
		tracer:        tracenoop.NewTracerProvider().Tracer("moviequery/pipeline"),
		meter:         metricnoop.NewMeterProvider().Meter("moviequery/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, slot := range []llm.SlotDefinition{p.synthesisSlot, p.replySlot} {
		if err := slot.Validate(); err != nil {
			return nil, moviequery.NewConfigurationError("pipeline.New", fmt.Errorf("%w: %v", moviequery.ErrInvalidConfig, err))
		}
	}

	metrics, err := newPipelineMetrics(p.meter)
	if err != nil {
		return nil, moviequery.NewInternalError("pipeline.New", err)
	}
	p.metrics = metrics

	p.introspector = graphstore.NewIntrospector(store, p.logger.With("component", "introspector"))
	p.synthesizer = NewQuerySynthesizer(client, p.synthesisSlot, p.logger.With("component", "synthesizer"))
	p.executor = NewExecutor(store, p.guard, p.logger.With("component", "executor"))
	p.answerer = NewAnswerSynthesizer(client, p.replySlot, p.logger.With("component", "answerer"))

	p.stages = map[string]stageFunc{
		StageQueryDB: p.queryDB,
		StageReply:   p.reply,
	}
	p.transitions = map[string]string{
		StageQueryDB: StageReply,
		StageReply:   StageEnd,
	}

	return p, nil
}

// Stages returns the stage names in execution order, ending with StageEnd.
func (p *Pipeline) Stages() []string {
	order := []string{StageQueryDB}
	for next := p.transitions[StageQueryDB]; ; next = p.transitions[next] {
		order = append(order, next)
		if next == StageEnd {
			return order
		}
	}
}

// Run executes every stage for question and returns the final state.
// An empty or whitespace-only question fails with ErrEmptyQuestion before
// any collaborator is called.
func (p *Pipeline) Run(ctx context.Context, question string) (State, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return State{}, moviequery.NewValidationError("Pipeline.Run", moviequery.ErrEmptyQuestion)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	state := State{Question: question}
	for name := StageQueryDB; name != StageEnd; name = p.transitions[name] {
		update, err := p.runStage(ctx, name, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		state = state.Merge(update)
	}

	span.SetAttributes(
		attribute.Int("moviequery.tokens.total", state.Usage.TotalTokens),
		attribute.Int("moviequery.rows", state.Rows.Len()),
	)
	return state, nil
}

// GenerateText runs the pipeline and returns only the answer.
func (p *Pipeline) GenerateText(ctx context.Context, question string) (string, error) {
	state, err := p.Run(ctx, question)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(llm.StripReasoning(state.Answer)), nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, state State) (Update, error) {
	stage, ok := p.stages[name]
	if !ok {
		return Update{}, moviequery.NewInternalError("Pipeline.Run", fmt.Errorf("unknown stage %q", name))
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(attribute.String("moviequery.stage", name)))
	defer span.End()

	start := time.Now()
	update, err := stage(ctx, state)
	p.metrics.recordStage(ctx, name, float64(time.Since(start).Microseconds())/1000)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("pipeline stage failed",
			"stage", name,
			"error", err)
	}
	return update, err
}

// queryDB introspects the schema, synthesizes a query and executes it.
// Nothing in this stage is fatal.
func (p *Pipeline) queryDB(ctx context.Context, s State) (Update, error) {
	schema := p.introspector.Introspect(ctx)

	query, usage, err := p.synthesizer.Synthesize(ctx, s.Question, schema)
	if err != nil {
		p.logger.Warn("query synthesis failed, continuing without a query",
			"model", p.synthesisSlot.Model,
			"error", err)
		query = ""
	}
	p.recordUsage(ctx, p.synthesisSlot.Name, usage)

	rows := p.executor.Execute(ctx, query, schema)
	if msg, failed := rows.Err(); failed {
		p.metrics.executionFailures.Add(ctx, 1)
		trace.SpanFromContext(ctx).AddEvent("execution failed",
			trace.WithAttributes(attribute.String("error", msg)))
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("moviequery.schema.known", schema != ""),
		attribute.String("moviequery.query", query),
	)

	return Update{
		Schema: &schema,
		Query:  &query,
		Rows:   &rows,
		Usage:  usage,
	}, nil
}

// reply phrases the answer. A failed model call here is fatal.
func (p *Pipeline) reply(ctx context.Context, s State) (Update, error) {
	answer, usage, err := p.answerer.Answer(ctx, s.Question, s.Rows)
	if err != nil {
		return Update{}, moviequery.NewExecutionError("Pipeline.reply", err).
			WithContext(map[string]any{"model": p.replySlot.Model})
	}
	p.recordUsage(ctx, p.replySlot.Name, usage)

	return Update{Answer: &answer, Usage: usage}, nil
}

func (p *Pipeline) recordUsage(ctx context.Context, slot string, usage llm.TokenUsage) {
	if usage.IsZero() {
		return
	}
	p.metrics.recordUsage(ctx, slot, usage)
	if p.tracker != nil {
		p.tracker.Add(slot, usage)
	}
}
