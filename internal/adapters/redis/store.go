package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

const defaultPrefix = "parley"

// Store bundles workflow, run and step persistence over one Redis client.
// The port interfaces are exposed through the Workflows, Runs and Steps
// views. A zero TTL means records never expire.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL sets an expiry on every written record.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to Redis at addr and returns a store.
func New(addr string, opts ...Option) *Store {
	return NewFromClient(goredis.NewClient(&goredis.Options{Addr: addr}), opts...)
}

// NewFromClient wraps an existing client, useful for cluster setups and
// tests.
func NewFromClient(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workflows returns the ports.WorkflowStore view.
func (s *Store) Workflows() ports.WorkflowStore {
	return workflowView{s}
}

// Runs returns the ports.RunStore view.
func (s *Store) Runs() ports.RunStore {
	return runView{s}
}

// Steps returns the ports.RunStepStore view.
func (s *Store) Steps() ports.RunStepStore {
	return stepView{s}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return &domain.BackendError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) workflowKey(id string) string {
	return fmt.Sprintf("%s:workflow:%s", s.prefix, id)
}

func (s *Store) workflowIndexKey() string {
	return s.prefix + ":workflows"
}

func (s *Store) runKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, id)
}

func (s *Store) stepsKey(runID uuid.UUID) string {
	return fmt.Sprintf("%s:steps:%s", s.prefix, runID)
}

func (s *Store) getWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	data, err := s.client.Get(ctx, s.workflowKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	if err != nil {
		return nil, &domain.BackendError{Op: "get workflow", Err: err}
	}

	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, &domain.BackendError{Op: "decode workflow", Err: err}
	}
	return &wf, nil
}

func (s *Store) createWorkflow(ctx context.Context, wf *domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return &domain.BackendError{Op: "encode workflow", Err: err}
	}

	ok, err := s.client.SetNX(ctx, s.workflowKey(wf.ID), data, s.ttl).Result()
	if err != nil {
		return &domain.BackendError{Op: "create workflow", Err: err}
	}
	if !ok {
		return fmt.Errorf("workflow %s already exists", wf.ID)
	}
	if err := s.client.SAdd(ctx, s.workflowIndexKey(), wf.ID).Err(); err != nil {
		return &domain.BackendError{Op: "index workflow", Err: err}
	}
	return nil
}

func (s *Store) updateWorkflow(ctx context.Context, wf *domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return &domain.BackendError{Op: "encode workflow", Err: err}
	}

	ok, err := s.client.SetXX(ctx, s.workflowKey(wf.ID), data, s.ttl).Result()
	if err != nil {
		return &domain.BackendError{Op: "update workflow", Err: err}
	}
	if !ok {
		return fmt.Errorf("workflow %s: %w", wf.ID, domain.ErrWorkflowNotFound)
	}
	return nil
}

func (s *Store) deleteWorkflow(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.workflowKey(id)).Result()
	if err != nil {
		return &domain.BackendError{Op: "delete workflow", Err: err}
	}
	if removed == 0 {
		return fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	if err := s.client.SRem(ctx, s.workflowIndexKey(), id).Err(); err != nil {
		return &domain.BackendError{Op: "unindex workflow", Err: err}
	}
	return nil
}

func (s *Store) listWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	ids, err := s.client.SMembers(ctx, s.workflowIndexKey()).Result()
	if err != nil {
		return nil, &domain.BackendError{Op: "list workflows", Err: err}
	}

	out := make([]domain.Workflow, 0, len(ids))
	for _, id := range ids {
		wf, err := s.getWorkflow(ctx, id)
		if errors.Is(err, domain.ErrWorkflowNotFound) {
			continue // expired record, the index is cleaned lazily
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *wf)
	}
	return out, nil
}

func (s *Store) getRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, &domain.BackendError{Op: "get run", Err: err}
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, &domain.BackendError{Op: "decode run", Err: err}
	}
	return &run, nil
}

func (s *Store) createRun(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return &domain.BackendError{Op: "encode run", Err: err}
	}

	ok, err := s.client.SetNX(ctx, s.runKey(run.ID), data, s.ttl).Result()
	if err != nil {
		return &domain.BackendError{Op: "create run", Err: err}
	}
	if !ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	return nil
}

func (s *Store) updateRun(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return &domain.BackendError{Op: "encode run", Err: err}
	}

	ok, err := s.client.SetXX(ctx, s.runKey(run.ID), data, s.ttl).Result()
	if err != nil {
		return &domain.BackendError{Op: "update run", Err: err}
	}
	if !ok {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrRunNotFound)
	}
	return nil
}

func (s *Store) appendStep(ctx context.Context, step *domain.RunStep) error {
	data, err := json.Marshal(step)
	if err != nil {
		return &domain.BackendError{Op: "encode step", Err: err}
	}

	key := s.stepsKey(step.RunID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return &domain.BackendError{Op: "append step", Err: err}
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return &domain.BackendError{Op: "expire steps", Err: err}
		}
	}
	return nil
}

func (s *Store) listStepsByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStep, error) {
	raw, err := s.client.LRange(ctx, s.stepsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, &domain.BackendError{Op: "list steps", Err: err}
	}

	out := make([]domain.RunStep, 0, len(raw))
	for _, item := range raw {
		var step domain.RunStep
		if err := json.Unmarshal([]byte(item), &step); err != nil {
			return nil, &domain.BackendError{Op: "decode step", Err: err}
		}
		out = append(out, step)
	}
	return out, nil
}

// The port interfaces use the same method names over different key types, so
// each is exposed through its own view type.

type workflowView struct{ s *Store }

func (v workflowView) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	return v.s.getWorkflow(ctx, id)
}

func (v workflowView) Create(ctx context.Context, wf *domain.Workflow) error {
	return v.s.createWorkflow(ctx, wf)
}

func (v workflowView) Update(ctx context.Context, wf *domain.Workflow) error {
	return v.s.updateWorkflow(ctx, wf)
}

func (v workflowView) Delete(ctx context.Context, id string) error {
	return v.s.deleteWorkflow(ctx, id)
}

func (v workflowView) List(ctx context.Context) ([]domain.Workflow, error) {
	return v.s.listWorkflows(ctx)
}

type runView struct{ s *Store }

func (v runView) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return v.s.getRun(ctx, id)
}

func (v runView) Create(ctx context.Context, run *domain.Run) error {
	return v.s.createRun(ctx, run)
}

func (v runView) Update(ctx context.Context, run *domain.Run) error {
	return v.s.updateRun(ctx, run)
}

type stepView struct{ s *Store }

func (v stepView) Append(ctx context.Context, step *domain.RunStep) error {
	return v.s.appendStep(ctx, step)
}

func (v stepView) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStep, error) {
	return v.s.listStepsByRun(ctx, runID)
}
