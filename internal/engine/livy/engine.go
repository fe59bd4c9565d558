// Package livy runs provisioning statements as Spark SQL through an Apache
// Livy server.
//
// Open creates an interactive session and waits for it to become idle. Each
// statement is submitted with kind "sql" and polled until its result is
// available. Close deletes the session.
package livy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/hiveseed/internal/dialect"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// Options configures Open.
type Options struct {
	Config  hiveseed.LivyConfig
	AppName string

	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
}

// Engine is a hiveseed.Engine bound to one Livy session.
type Engine struct {
	client       *client
	sessionID    int
	sessionName  string
	pollInterval time.Duration
	dialect      *dialect.Hive
	logger       hiveseed.Logger
	closed       bool
}

// Open creates a Livy session named "<app>-<run id>" and waits until it
// accepts statements.
func Open(ctx context.Context, opts Options, logger hiveseed.Logger) (*Engine, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if opts.Config.URL == "" {
		return nil, fmt.Errorf("livy URL is required: %w", hiveseed.ErrInvalidConfig)
	}

	kind := opts.Config.SessionKind
	if kind == "" {
		kind = hiveseed.DefaultLivySessionKind
	}
	poll := opts.Config.PollInterval
	if poll <= 0 {
		poll = hiveseed.DefaultLivyPollInterval
	}
	appName := opts.AppName
	if appName == "" {
		appName = hiveseed.DefaultAppName
	}

	conf := make(map[string]string, len(opts.Config.Conf)+1)
	for k, v := range opts.Config.Conf {
		conf[k] = v
	}
	conf["spark.app.name"] = appName

	e := &Engine{
		client:       newClient(opts.Config.URL, opts.Config.Username, opts.Config.Password, opts.HTTPClient),
		sessionName:  appName + "-" + uuid.NewString(),
		pollInterval: poll,
		dialect:      dialect.NewHive(),
		logger:       logger,
	}

	logger.Verbose("livy: creating %s session %q at %s", kind, e.sessionName, opts.Config.URL)
	s, err := e.client.createSession(ctx, createSessionRequest{Kind: kind, Name: e.sessionName, Conf: conf})
	if err != nil {
		return nil, hiveseed.NewEngineError("create session", "", classifyTransport(err), err)
	}
	e.sessionID = s.ID

	if err := e.waitIdle(ctx, s.State); err != nil {
		if delErr := e.client.deleteSession(context.WithoutCancel(ctx), e.sessionID); delErr != nil {
			logger.Verbose("livy: delete session %d: %v", e.sessionID, delErr)
		}
		return nil, err
	}
	logger.Verbose("livy: session %d is idle", e.sessionID)
	return e, nil
}

// SessionID returns the Livy session id.
func (e *Engine) SessionID() int {
	return e.sessionID
}

// SessionName returns the name the session was created with.
func (e *Engine) SessionName() string {
	return e.sessionName
}

func (e *Engine) waitIdle(ctx context.Context, state string) error {
	const op = "create session"
	for {
		switch state {
		case stateIdle:
			return nil
		case stateError, stateDead, stateKilled, stateShuttingDown, stateSuccess:
			return hiveseed.NewEngineError(op, "", hiveseed.ErrEngineUnavailable,
				fmt.Errorf("livy session %d is %s", e.sessionID, state))
		}

		if err := e.sleep(ctx); err != nil {
			return hiveseed.NewEngineError(op, "", nil, err)
		}
		s, err := e.client.getSession(ctx, e.sessionID)
		if err != nil {
			return hiveseed.NewEngineError(op, "", classifyTransport(err), err)
		}
		if s.State != state {
			e.logger.Verbose("livy: session %d is %s", e.sessionID, s.State)
		}
		state = s.State
	}
}

func (e *Engine) sleep(ctx context.Context) error {
	t := time.NewTimer(e.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute renders stmt as HiveQL and runs it in the session.
func (e *Engine) Execute(ctx context.Context, stmt hiveseed.Statement) error {
	text, err := e.dialect.Render(stmt)
	if err != nil {
		return err
	}
	_, err = e.run(ctx, stmt.Kind().String(), text)
	return err
}

// CountRows counts the rows of a table in the current database.
func (e *Engine) CountRows(ctx context.Context, table string) (int64, error) {
	stmt := hiveseed.CountRows{Table: table}
	text, err := e.dialect.Render(stmt)
	if err != nil {
		return 0, err
	}
	op := stmt.Kind().String()

	out, err := e.run(ctx, op, text)
	if err != nil {
		return 0, err
	}
	n, err := parseCount(out)
	if err != nil {
		return 0, hiveseed.NewEngineError(op, text, nil, err)
	}
	return n, nil
}

func (e *Engine) run(ctx context.Context, op, text string) (*statementOutput, error) {
	if e.closed {
		return nil, hiveseed.NewEngineError(op, text, hiveseed.ErrEngineUnavailable, errors.New("livy session is closed"))
	}

	e.logger.Verbose("livy: %s", text)
	st, err := e.client.submitStatement(ctx, e.sessionID, text)
	if err != nil {
		return nil, hiveseed.NewEngineError(op, text, classifyTransport(err), err)
	}

	for {
		switch st.State {
		case statementAvailable:
			if st.Output == nil {
				return nil, hiveseed.NewEngineError(op, text, hiveseed.ErrEngineUnavailable,
					fmt.Errorf("livy statement %d returned no output", st.ID))
			}
			if st.Output.Status == "error" {
				serr := &StatementError{Name: st.Output.EName, Value: st.Output.EValue, Traceback: st.Output.Traceback}
				return nil, hiveseed.NewEngineError(op, text, Classify(serr.Name, serr.Value), serr)
			}
			return st.Output, nil
		case statementError, statementCancelling, statementCancelled:
			return nil, hiveseed.NewEngineError(op, text, hiveseed.ErrEngineUnavailable,
				fmt.Errorf("livy statement %d is %s", st.ID, st.State))
		}

		if err := e.sleep(ctx); err != nil {
			return nil, hiveseed.NewEngineError(op, text, nil, err)
		}
		st, err = e.client.getStatement(ctx, e.sessionID, st.ID)
		if err != nil {
			return nil, hiveseed.NewEngineError(op, text, classifyTransport(err), err)
		}
	}
}

func parseCount(out *statementOutput) (int64, error) {
	raw, ok := out.Data["application/json"]
	if !ok {
		return 0, errors.New("count returned no application/json output")
	}
	var result sqlResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("decode count result: %w", err)
	}
	if len(result.Data) != 1 || len(result.Data[0]) != 1 {
		return 0, fmt.Errorf("count returned %d rows, want 1", len(result.Data))
	}
	n, err := strconv.ParseInt(string(result.Data[0][0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode count value %s: %w", result.Data[0][0], err)
	}
	return n, nil
}

// Close deletes the Livy session. Calling it again is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.logger.Verbose("livy: deleting session %d", e.sessionID)
	if err := e.client.deleteSession(context.Background(), e.sessionID); err != nil {
		return hiveseed.NewEngineError("close session", "", classifyTransport(err), err)
	}
	return nil
}

var (
	_ hiveseed.Engine     = (*Engine)(nil)
	_ hiveseed.RowCounter = (*Engine)(nil)
)
