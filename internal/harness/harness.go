package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/ripple/internal/model"
	"github.com/roach88/ripple/internal/store"
	"github.com/roach88/ripple/internal/testutil"
)

// defaultSource stamps local operations when the scenario does not
// name a connection id.
const defaultSource = "harness"

// Harness holds the store, connection and model a scenario runs
// against.
type Harness struct {
	store *store.Store
	conn  *store.Conn
	model *model.Model
}

// Run executes a scenario against a fresh in-memory store and model.
// Step failures abort the run with an error; assertion failures are
// collected on the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i, seed := range scenario.Seed {
		if _, err := st.PutDoc(ctx, seed.Collection, seed.ID, seed.Data); err != nil {
			return nil, fmt.Errorf("seed[%d]: failed to write document: %w", i, err)
		}
	}

	source := scenario.Source
	if source == "" {
		source = defaultSource
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs during runs
	conn := store.NewConn(st, store.WithSource(source), store.WithLogger(logger))

	result := NewResult()
	opts := []model.Option{
		model.WithBackend(conn),
		model.WithServer(),
		model.WithLogger(logger),
		model.WithObserver(result.Observe),
	}
	if len(scenario.DocIDs) > 0 {
		opts = append(opts, model.WithIDSource(testutil.NewFixedIDSource(scenario.DocIDs...)))
	}
	m := model.New(opts...)

	h := &Harness{store: st, conn: conn, model: m}
	if err := h.executeSteps(ctx, scenario.Steps); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Model: m}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		err := h.executeStep(ctx, step)
		if step.Error != "" {
			if err == nil {
				return fmt.Errorf("step %d: %s succeeded, want error containing %q", i, step.Action, step.Error)
			}
			if !strings.Contains(err.Error(), step.Error) {
				return fmt.Errorf("step %d: %s failed with %q, want error containing %q", i, step.Action, err, step.Error)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("step %d: %s: %w", i, step.Action, err)
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	scope := h.model
	if step.Silent {
		scope = scope.Silent(true)
	}

	switch step.Action {
	case ActionFetch:
		return scope.Fetch(ctx, model.Paths(step.Targets...)...)
	case ActionSubscribe:
		return scope.Subscribe(ctx, model.Paths(step.Targets...)...)
	case ActionUnfetch:
		return scope.Unfetch(ctx, model.Paths(step.Targets...)...)
	case ActionUnsubscribe:
		return scope.Unsubscribe(ctx, model.Paths(step.Targets...)...)
	case ActionSet:
		_, err := scope.Set(step.Path, step.Value)
		return err
	case ActionDel:
		_, err := scope.Del(step.Path)
		return err
	case ActionInsert:
		return scope.Insert(step.Path, step.Index, step.Values...)
	case ActionRemove:
		_, err := scope.Remove(step.Path, step.Index, step.HowMany)
		return err
	case ActionMove:
		return scope.Move(step.Path, step.From, step.To, step.HowMany)
	case ActionAdd:
		_, err := scope.Add(step.Collection, step.Data)
		return err
	case ActionInject:
		return h.conn.InjectOp(ctx, step.Collection, step.ID, step.Op.Op())
	case ActionPause:
		h.conn.Pause()
		return nil
	case ActionResume:
		h.conn.Resume()
		return nil
	}
	return fmt.Errorf("unknown action %q", step.Action)
}
