package livy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/hiveseed/internal/logging"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// fakeLivy is an in-memory Livy server. respond decides the output of each
// submitted statement.
type fakeLivy struct {
	t       *testing.T
	mu      sync.Mutex
	respond func(code string) statementOutput

	sessionStates []string // states returned by successive session polls
	created       []createSessionRequest
	submitted     []submitStatementRequest
	deleted       []int
	pendingPolls  int // statement polls answered "running" before "available"
	authHeader    string
	requestedBy   string
}

func newFakeLivy(t *testing.T) (*fakeLivy, *httptest.Server) {
	f := &fakeLivy{
		t:             t,
		sessionStates: []string{stateStarting, stateIdle},
		respond: func(string) statementOutput {
			return statementOutput{Status: "ok", Data: map[string]json.RawMessage{"text/plain": json.RawMessage(`""`)}}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.created = append(f.created, req)
		f.authHeader = r.Header.Get("Authorization")
		f.requestedBy = r.Header.Get("X-Requested-By")
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, session{ID: 7, Name: req.Name, State: stateNotStarted})
	})
	mux.HandleFunc("GET /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		state := f.sessionStates[0]
		if len(f.sessionStates) > 1 {
			f.sessionStates = f.sessionStates[1:]
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, session{ID: 7, State: state})
	})
	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"msg": "deleted"})
	})
	mux.HandleFunc("POST /sessions/{id}/statements", func(w http.ResponseWriter, r *http.Request) {
		var req submitStatementRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.submitted = append(f.submitted, req)
		id := len(f.submitted) - 1
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, statement{ID: id, State: statementWaiting})
	})
	mux.HandleFunc("GET /sessions/{id}/statements/{sid}", func(w http.ResponseWriter, r *http.Request) {
		sid, _ := strconv.Atoi(r.PathValue("sid"))
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.pendingPolls > 0 {
			f.pendingPolls--
			writeJSON(w, http.StatusOK, statement{ID: sid, State: statementRunning})
			return
		}
		out := f.respond(f.submitted[sid].Code)
		writeJSON(w, http.StatusOK, statement{ID: sid, State: statementAvailable, Output: &out})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeLivy) codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.submitted))
	for i, s := range f.submitted {
		out[i] = s.Code
	}
	return out
}

func openTestEngine(t *testing.T, url string) *Engine {
	t.Helper()
	e, err := Open(context.Background(), Options{
		Config:  hiveseed.LivyConfig{URL: url, PollInterval: time.Millisecond},
		AppName: "Plotly Exports",
	}, logging.NewNullLogger())
	require.NoError(t, err)
	return e
}

func alcoholConfig() hiveseed.ProvisionConfig {
	return hiveseed.ProvisionConfig{
		Namespace: "PLOTLY",
		Table: hiveseed.TableSpec{
			Name: "ALCOHOL_CONSUMPTION_BY_COUNTRY_2010",
			Columns: []hiveseed.Column{
				{Name: "LOCATION", Type: hiveseed.TypeString},
				{Name: "ALCOHOL", Type: hiveseed.TypeDouble},
			},
			Delimiter:  ",",
			HeaderSkip: 1,
		},
		SourcePath: "/plotly_datasets/2010_alcohol_consumption_by_country.csv",
	}
}

func TestOpen_CreatesNamedSessionAndWaitsForIdle(t *testing.T) {
	f, srv := newFakeLivy(t)
	f.sessionStates = []string{stateStarting, stateStarting, stateIdle}

	e := openTestEngine(t, srv.URL)
	defer e.Close()

	require.Len(t, f.created, 1)
	req := f.created[0]
	assert.Equal(t, hiveseed.DefaultLivySessionKind, req.Kind)
	assert.True(t, strings.HasPrefix(req.Name, "Plotly Exports-"), req.Name)
	assert.Equal(t, req.Name, e.SessionName())
	assert.Equal(t, "Plotly Exports", req.Conf["spark.app.name"])
	assert.Equal(t, 7, e.SessionID())
	assert.Equal(t, "hiveseed", f.requestedBy)
	assert.Empty(t, f.authHeader)
}

func TestOpen_BasicAuthAndConf(t *testing.T) {
	f, srv := newFakeLivy(t)

	e, err := Open(context.Background(), Options{
		Config: hiveseed.LivyConfig{
			URL:          srv.URL + "/",
			Username:     "analyst",
			Password:     "secret",
			SessionKind:  "pyspark",
			PollInterval: time.Millisecond,
			Conf:         map[string]string{"spark.executor.memory": "2g"},
		},
	}, logging.NewNullLogger())
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, strings.HasPrefix(f.authHeader, "Basic "))
	assert.Equal(t, "pyspark", f.created[0].Kind)
	assert.Equal(t, "2g", f.created[0].Conf["spark.executor.memory"])
	assert.Equal(t, hiveseed.DefaultAppName, f.created[0].Conf["spark.app.name"])
}

func TestOpen_DeadSessionIsUnavailable(t *testing.T) {
	tests := []string{stateDead, stateKilled, stateError}
	for _, state := range tests {
		t.Run(state, func(t *testing.T) {
			f, srv := newFakeLivy(t)
			f.sessionStates = []string{stateStarting, state}

			_, err := Open(context.Background(), Options{
				Config: hiveseed.LivyConfig{URL: srv.URL, PollInterval: time.Millisecond},
			}, logging.NewNullLogger())
			require.Error(t, err)
			assert.ErrorIs(t, err, hiveseed.ErrEngineUnavailable)
			assert.Equal(t, []int{7}, f.deleted)
		})
	}
}

func TestOpen_Failures(t *testing.T) {
	_, err := Open(context.Background(), Options{}, logging.NewNullLogger())
	assert.ErrorIs(t, err, hiveseed.ErrInvalidConfig)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "livy is down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = Open(context.Background(), Options{Config: hiveseed.LivyConfig{URL: srv.URL}}, logging.NewNullLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, hiveseed.ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "livy is down")

	_, err = Open(context.Background(), Options{Config: hiveseed.LivyConfig{URL: "http://127.0.0.1:1"}}, logging.NewNullLogger())
	assert.ErrorIs(t, err, hiveseed.ErrEngineUnavailable)
}

func TestExecute_SubmitsHiveQLInOrder(t *testing.T) {
	f, srv := newFakeLivy(t)
	f.pendingPolls = 2
	e := openTestEngine(t, srv.URL)
	defer e.Close()

	for _, stmt := range hiveseed.ProvisionPlan(alcoholConfig()) {
		require.NoError(t, e.Execute(context.Background(), stmt))
	}

	assert.Equal(t, []string{
		"CREATE DATABASE PLOTLY",
		"USE PLOTLY",
		"CREATE TABLE ALCOHOL_CONSUMPTION_BY_COUNTRY_2010 (LOCATION STRING, ALCOHOL DOUBLE) " +
			"ROW FORMAT DELIMITED FIELDS TERMINATED BY ',' " +
			`TBLPROPERTIES ("skip.header.line.count"="1")`,
		"LOAD DATA LOCAL INPATH '/plotly_datasets/2010_alcohol_consumption_by_country.csv' " +
			"OVERWRITE INTO TABLE ALCOHOL_CONSUMPTION_BY_COUNTRY_2010",
	}, f.codes())
	for _, s := range f.submitted {
		assert.Equal(t, "sql", s.Kind)
	}
}

func TestExecute_ClassifiesSparkErrors(t *testing.T) {
	tests := []struct {
		name   string
		ename  string
		evalue string
		want   error
	}{
		{"database exists", "org.apache.spark.sql.catalyst.analysis.DatabaseAlreadyExistsException", "Database 'plotly' already exists", hiveseed.ErrAlreadyExists},
		{"table exists", "org.apache.spark.sql.AnalysisException", "Table or view 'alcohol' already exists in database 'plotly'", hiveseed.ErrAlreadyExists},
		{"database missing", "org.apache.spark.sql.catalyst.analysis.NoSuchDatabaseException", "Database 'plotly' not found", hiveseed.ErrNotFound},
		{"error class", "org.apache.spark.sql.AnalysisException", "[SCHEMA_NOT_FOUND] The schema `plotly` cannot be found.", hiveseed.ErrNotFound},
		{"input path", "org.apache.spark.sql.AnalysisException", "LOAD DATA input path does not exist: /data/x.csv", hiveseed.ErrSourceNotFound},
		{"cast", "org.apache.spark.SparkNumberFormatException", "[CAST_INVALID_INPUT] The value 'lots' of the type \"STRING\" cannot be cast", hiveseed.ErrSchemaMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeLivy(t)
			f.respond = func(string) statementOutput {
				return statementOutput{Status: "error", EName: tt.ename, EValue: tt.evalue}
			}
			e := openTestEngine(t, srv.URL)
			defer e.Close()

			err := e.Execute(context.Background(), hiveseed.CreateNamespace{Name: "PLOTLY"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.evalue)

			var serr *StatementError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.ename, serr.Name)

			var eerr *hiveseed.EngineError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, "CREATE DATABASE PLOTLY", eerr.Statement)
		})
	}
}

func TestExecute_UnrecognizedErrorKeepsEngineText(t *testing.T) {
	f, srv := newFakeLivy(t)
	f.respond = func(string) statementOutput {
		return statementOutput{Status: "error", EName: "ParseException", EValue: "mismatched input 'CREAT'"}
	}
	e := openTestEngine(t, srv.URL)
	defer e.Close()

	err := e.Execute(context.Background(), hiveseed.UseNamespace{Name: "PLOTLY"})
	require.Error(t, err)
	assert.Equal(t, hiveseed.ExitGeneralError, hiveseed.ExitCodeForError(err))
	assert.Contains(t, err.Error(), "ParseException: mismatched input 'CREAT'")
}

func TestExecute_InvalidStatementNotSubmitted(t *testing.T) {
	f, srv := newFakeLivy(t)
	e := openTestEngine(t, srv.URL)
	defer e.Close()

	err := e.Execute(context.Background(), hiveseed.UseNamespace{Name: "PLOTLY; DROP"})
	assert.ErrorIs(t, err, hiveseed.ErrInvalidConfig)
	assert.Empty(t, f.codes())
}

func TestExecute_CancelledWhilePolling(t *testing.T) {
	f, srv := newFakeLivy(t)
	f.pendingPolls = 1 << 20
	e := openTestEngine(t, srv.URL)
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Execute(ctx, hiveseed.CreateNamespace{Name: "PLOTLY"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCountRows(t *testing.T) {
	f, srv := newFakeLivy(t)
	f.respond = func(code string) statementOutput {
		return statementOutput{Status: "ok", Data: map[string]json.RawMessage{
			"application/json": json.RawMessage(`{"schema":{"type":"struct","fields":[{"name":"count(1)","type":"long"}]},"data":[[100]]}`),
		}}
	}
	e := openTestEngine(t, srv.URL)
	defer e.Close()

	n, err := e.CountRows(context.Background(), "ALCOHOL")
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
	assert.Equal(t, []string{"SELECT COUNT(*) FROM ALCOHOL"}, f.codes())
}

func TestParseCount_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data map[string]json.RawMessage
	}{
		{"no json", map[string]json.RawMessage{"text/plain": json.RawMessage(`"100"`)}},
		{"bad json", map[string]json.RawMessage{"application/json": json.RawMessage(`{`)}},
		{"no rows", map[string]json.RawMessage{"application/json": json.RawMessage(`{"data":[]}`)}},
		{"not a number", map[string]json.RawMessage{"application/json": json.RawMessage(`{"data":[["x"]]}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCount(&statementOutput{Data: tt.data})
			assert.Error(t, err)
		})
	}
}

func TestClose_DeletesSessionOnce(t *testing.T) {
	f, srv := newFakeLivy(t)
	e := openTestEngine(t, srv.URL)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, []int{7}, f.deleted)

	err := e.Execute(context.Background(), hiveseed.UseNamespace{Name: "PLOTLY"})
	assert.ErrorIs(t, err, hiveseed.ErrEngineUnavailable)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("ParseException", "syntax error"))
	assert.Equal(t, hiveseed.ErrSourceNotFound, Classify("AnalysisException", "Invalid path /x"))
	assert.Equal(t, hiveseed.ErrNotFound, Classify("NoSuchTableException", "Table or view not found: plotly.t"))
}
