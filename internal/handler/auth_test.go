package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/packline/api/internal/auth"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	getUserFn       func(ctx context.Context, username string) (database.User, error)
	bumpAttemptsFn  func(ctx context.Context, username string, windowMinutes int32) (int32, error)
	clearAttemptsFn func(ctx context.Context, username string) error
}

func (m *mockAuthStore) GetUserByUsername(ctx context.Context, username string) (database.User, error) {
	return m.getUserFn(ctx, username)
}
func (m *mockAuthStore) BumpLoginAttempts(ctx context.Context, username string, windowMinutes int32) (int32, error) {
	if m.bumpAttemptsFn != nil {
		return m.bumpAttemptsFn(ctx, username, windowMinutes)
	}
	return 1, nil
}
func (m *mockAuthStore) ClearLoginAttempts(ctx context.Context, username string) error {
	if m.clearAttemptsFn != nil {
		return m.clearAttemptsFn(ctx, username)
	}
	return nil
}

// --- Test helpers ---

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doLogin(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func testUser(t *testing.T, password string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.User{
		ID:           uuid.New(),
		Username:     "rosa",
		FullName:     "Rosa Lindqvist",
		PasswordHash: string(hash),
		Role:         "PICKER",
	}
}

// --- Tests ---

func TestLogin(t *testing.T) {
	user := testUser(t, "correct-horse")
	cleared := false
	store := &mockAuthStore{
		getUserFn: func(ctx context.Context, username string) (database.User, error) {
			if username != "rosa" {
				return database.User{}, pgx.ErrNoRows
			}
			return user, nil
		},
		clearAttemptsFn: func(ctx context.Context, username string) error {
			cleared = true
			return nil
		},
	}
	router := setupAuthRouter(store)

	rr := doLogin(t, router, "rosa", "correct-horse")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !cleared {
		t.Error("successful login did not clear the attempt counter")
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Username != "rosa" || resp.User.Role != "PICKER" {
		t.Errorf("user = %+v", resp.User)
	}

	claims, err := auth.ValidateToken(testJWTSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Name != "Rosa Lindqvist" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	user := testUser(t, "correct-horse")
	bumped := false
	store := &mockAuthStore{
		getUserFn: func(ctx context.Context, username string) (database.User, error) {
			return user, nil
		},
		bumpAttemptsFn: func(ctx context.Context, username string, windowMinutes int32) (int32, error) {
			bumped = true
			return 2, nil
		},
	}
	router := setupAuthRouter(store)

	rr := doLogin(t, router, "rosa", "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if !bumped {
		t.Error("failed login did not bump the attempt counter")
	}
}

func TestLoginThrottled(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserFn: func(ctx context.Context, username string) (database.User, error) {
			return user, nil
		},
		bumpAttemptsFn: func(ctx context.Context, username string, windowMinutes int32) (int32, error) {
			return 6, nil
		},
	}
	router := setupAuthRouter(store)

	rr := doLogin(t, router, "rosa", "wrong")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
}

func TestLoginUnknownUserCounted(t *testing.T) {
	bumped := false
	store := &mockAuthStore{
		getUserFn: func(ctx context.Context, username string) (database.User, error) {
			return database.User{}, pgx.ErrNoRows
		},
		bumpAttemptsFn: func(ctx context.Context, username string, windowMinutes int32) (int32, error) {
			bumped = true
			return 1, nil
		},
	}
	router := setupAuthRouter(store)

	rr := doLogin(t, router, "ghost", "whatever")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if !bumped {
		t.Error("unknown-user login did not bump the attempt counter")
	}
}

func TestLoginMissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := doLogin(t, router, "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
