package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pollboard/internal/config"
	"pollboard/internal/database"
	"pollboard/internal/middleware"
	"pollboard/internal/models"
	"pollboard/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(db), "migrate sqlite")
	return db
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := setupTestDB(t)
	return &Server{
		config:    &config.Config{JWTSecret: "test-secret-key", Port: "0"},
		db:        db,
		userRepo:  repository.NewUserRepository(db),
		postRepo:  repository.NewPostRepository(db),
		topicRepo: repository.NewTopicRepository(db),
		voteRepo:  repository.NewVoteRepository(db),
	}
}

func newTestApp(s *Server) *fiber.App {
	app := fiber.New()
	s.SetupRoutes(app)
	return app
}

func createTestUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func bearerToken(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.generateToken(user.ID, user.Username)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test")
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestSignupLoginFlow(t *testing.T) {
	s := newTestServer(t)
	app := newTestApp(s)

	resp := doJSON(t, app, "POST", "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var signup struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &signup)
	assert.NotEmpty(t, signup.Token)
	assert.Equal(t, "alice", signup.User.Username)

	// Duplicate email is rejected
	resp = doJSON(t, app, "POST", "/api/auth/signup", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Login with the right password succeeds
	resp = doJSON(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Wrong password is a 401
	resp = doJSON(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)
	app := newTestApp(s)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"username": "bob"}},
		{"bad email", map[string]string{"username": "bob", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, app, "POST", "/api/auth/signup", "", tc.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)

	mr := miniredis.RunT(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := newTestApp(s)
	user := createTestUser(t, s, "carol")
	auth := bearerToken(t, s, user)

	resp := doJSON(t, app, "POST", "/api/auth/logout", auth, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The same token is now rejected by the auth middleware
	resp = doJSON(t, app, "POST", "/api/auth/logout", auth, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_NoToken(t *testing.T) {
	s := newTestServer(t)
	app := newTestApp(s)

	resp := doJSON(t, app, "POST", "/api/posts/1/vote", "", map[string]int{"value": 1})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	app := newTestApp(s)

	resp := doJSON(t, app, "GET", "/api/", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.promMiddleware = middleware.InitMetrics("pollboard-test")
	app := newTestApp(s)

	user := createTestUser(t, s, "alice")
	post := createTestPoll(t, s, "tech", time.Now().Add(time.Hour), "a", "b")
	resp := doJSON(t, app, "POST", fmt.Sprintf("/api/posts/%d/vote", post.ID),
		bearerToken(t, s, user), map[string]int{"value": 1})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "pollboard_votes_total"),
		"vote counter is exported on the scrape endpoint")
}

func TestTracingHeader(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	resp := doJSON(t, app, "GET", "/api/", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}
