package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

const password = "Passw0rd!"

type (
	testServer struct {
		*Server
		env *testutil.Env
		jwt *JWTIssuer
	}

	response struct {
		Success    bool              `json:"success"`
		Message    string            `json:"message"`
		Data       json.RawMessage   `json:"data"`
		Pagination *core.PageInfo    `json:"pagination"`
		Errors     map[string]string `json:"errors"`
	}

	httpTest struct {
		name     string
		method   string
		path     string
		body     interface{}
		token    string
		wantCode int
		wantMsg  string
		check    func(t *testing.T, resp response)
	}
)

func newTestServer(t *testing.T, limiter ...core.RateLimiter) *testServer {
	t.Helper()

	env := testutil.NewEnv(t)
	deps := &ServerDeps{
		Conf:          env.Conf,
		Logger:        env.Logger,
		Validate:      env.Validate,
		Translator:    env.Translator,
		UserSvc:       env.UserSvc,
		AdmissionSvc:  env.AdmissionSvc,
		AttendanceSvc: env.AttendanceSvc,
		StudentSvc:    env.StudentSvc,
		TeacherSvc:    env.TeacherSvc,
	}
	if len(limiter) > 0 {
		deps.RateLimiter = limiter[0]
	}

	srv := NewServer("", deps)
	t.Cleanup(func() { _ = srv.Close() })
	return &testServer{Server: srv, env: env, jwt: NewJWTIssuer(env.Conf)}
}

func (s *testServer) createUser(t *testing.T, name, email string, role user.Role) user.User {
	t.Helper()
	return testutil.CreateUser(t, s.env.UserRepo, name, email, password, role, true)
}

func (s *testServer) tokenFor(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(s.jwt.Claims(usr))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) run(t *testing.T, tests []httpTest) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body)
			resp := decode(t, rec)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
			assert.Equal(t, rec.Code < http.StatusBadRequest, resp.Success)
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeData(t *testing.T, resp response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst), string(resp.Data))
}

func TestHome(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia API!", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "academia_http_requests_total")
}

func (s *testServer) ctx() context.Context { return context.Background() }
