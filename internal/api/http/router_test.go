package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/service"
)

const (
	unauthorizedBody = `{"error":"UNAUTHORIZED","message":"Unauthorized"}`
	forbiddenBody    = `{"error":"FORBIDDEN","message":"Forbidden"}`
)

type memoryUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := make([]domain.User, 0, limit)
	for i := offset; i < len(ids) && len(users) < limit; i++ {
		users = append(users, *r.users[ids[i]])
	}
	return users, nil
}

func (r *memoryUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	svc    *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cipher, err := auth.NewPasswordCipher("test-cipher-key")
	if err != nil {
		t.Fatalf("NewPasswordCipher returned error: %v", err)
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	repo := newMemoryUserRepo()
	svc := service.NewUserService(repo, tokens, cipher, events.NewInMemoryDispatcher())

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Users:          handlers.NewUsersHandler(svc),
		AuthMiddleware: auth.NewMiddleware(tokens, repo),
	})
	return &testServer{app: app, tokens: tokens, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (int, string) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(data)
}

// register creates an account directly through the service and returns it with
// a freshly issued token.
func (s *testServer) registerWithToken(t *testing.T, email, password, name string, role domain.Role) (*domain.User, string) {
	t.Helper()
	user, err := s.svc.Register(context.Background(), email, password, name, role)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	return user, token
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/signup", "", fiber.Map{
		"email": "a@x.com", "password": "p", "userName": "A", "role": "MEMBER",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var projection map[string]any
	if err := json.Unmarshal([]byte(body), &projection); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if projection["email"] != "a@x.com" || projection["userName"] != "A" || projection["role"] != "MEMBER" {
		t.Fatalf("unexpected projection: %s", body)
	}
	if _, leaked := projection["password"]; leaked {
		t.Fatalf("projection must not include the password: %s", body)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	status, body := s.do(t, http.MethodPost, "/signup", "", fiber.Map{
		"email": "a@x.com", "password": "other", "userName": "B", "role": "MEMBER",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate email, got %d: %s", status, body)
	}
	if body != `{"error":"DUPLICATE_EMAIL","message":"email already exists"}` {
		t.Fatalf("unexpected duplicate email body: %s", body)
	}
}

func TestSignup_InvalidPayload(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/signup", "", fiber.Map{
		"email": "not-an-email", "password": "p", "userName": "A", "role": "MEMBER",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on invalid email, got %d", status)
	}

	status, _ = s.do(t, http.MethodPost, "/signup", "", fiber.Map{
		"email": "a@x.com", "password": "p", "userName": "A", "role": "ROOT",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown role, got %d", status)
	}
}

func TestSignin(t *testing.T) {
	s := newTestServer(t)
	user, _ := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	status, body := s.do(t, http.MethodPost, "/signin", "", fiber.Map{"email": "a@x.com", "password": "p"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token in signin response")
	}
	extracted, err := s.tokens.ExtractUserID(resp.Token)
	if err != nil || extracted != user.ID {
		t.Fatalf("token subject %d (%v), want %d", extracted, err, user.ID)
	}
}

func TestSignin_BadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	for _, payload := range []fiber.Map{
		{"email": "a@x.com", "password": "wrong"},
		{"email": "nobody@x.com", "password": "p"},
	} {
		status, body := s.do(t, http.MethodPost, "/signin", "", payload)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d: %s", payload, status, body)
		}
		if body != `{"error":"LOGIN_FAILURE","message":"Login failure. check email or password"}` {
			t.Fatalf("unexpected login failure body: %s", body)
		}
	}
}

func TestProtectedEndpoints_MissingHeader(t *testing.T) {
	s := newTestServer(t)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/users/1"},
		{http.MethodPut, "/users/1"},
		{http.MethodDelete, "/users/1"},
		{http.MethodGet, "/users"},
	}
	for _, tc := range cases {
		status, body := s.do(t, tc.method, tc.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d: %s", tc.method, tc.path, status, body)
		}
		if body != unauthorizedBody {
			t.Fatalf("%s %s: unexpected 401 body: %s", tc.method, tc.path, body)
		}
	}
}

func TestProtectedEndpoints_ExpiredToken(t *testing.T) {
	s := newTestServer(t)
	user, _ := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	expiredIssuer := auth.NewTokenManager("test-secret", -time.Millisecond)
	expired, err := expiredIssuer.Generate(user.ID)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// expired credentials are "missing" credentials: 401, never 403
	cases := []struct{ method, path string }{
		{http.MethodGet, "/users/1"},
		{http.MethodDelete, "/users/1"},
		{http.MethodGet, "/users"},
	}
	for _, tc := range cases {
		status, body := s.do(t, tc.method, tc.path, expired, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d: %s", tc.method, tc.path, status, body)
		}
		if body != unauthorizedBody {
			t.Fatalf("%s %s: unexpected 401 body: %s", tc.method, tc.path, body)
		}
	}
}

func TestMemberAccess(t *testing.T) {
	s := newTestServer(t)
	member, memberToken := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)
	other, _ := s.registerWithToken(t, "b@x.com", "p", "B", domain.RoleMember)

	status, body := s.do(t, http.MethodGet, "/users/1", memberToken, nil)
	if status != http.StatusOK {
		t.Fatalf("member reading own record: expected 200, got %d: %s", status, body)
	}

	var projection map[string]any
	if err := json.Unmarshal([]byte(body), &projection); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if int64(projection["id"].(float64)) != member.ID {
		t.Fatalf("unexpected record: %s", body)
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users/2"},
		{http.MethodPut, "/users/2"},
		{http.MethodDelete, "/users/2"},
		{http.MethodGet, "/users"},
	} {
		var payload any
		if tc.method == http.MethodPut {
			payload = fiber.Map{"userName": "Hacked"}
		}
		status, body := s.do(t, tc.method, tc.path, memberToken, payload)
		if status != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d: %s", tc.method, tc.path, status, body)
		}
		if body != forbiddenBody {
			t.Fatalf("%s %s: unexpected 403 body: %s", tc.method, tc.path, body)
		}
	}

	// the other record is untouched
	got, err := s.svc.GetUserByID(context.Background(), other.ID)
	if err != nil || got.UserName != "B" {
		t.Fatalf("other user mutated: %v %v", got, err)
	}
}

func TestAdminAccess(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.registerWithToken(t, "admin@x.com", "p", "Admin", domain.RoleAdmin)
	member, _ := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	status, body := s.do(t, http.MethodGet, "/users/2", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin reading any record: expected 200, got %d: %s", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/users?page=0&size=10", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin listing users: expected 200, got %d: %s", status, body)
	}

	var page struct {
		Content       []map[string]any `json:"content"`
		TotalElements int64            `json:"totalElements"`
	}
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("invalid page body: %v", err)
	}
	if len(page.Content) != 2 || page.TotalElements != 2 {
		t.Fatalf("expected 2 users in page, got %s", body)
	}

	status, body = s.do(t, http.MethodPut, "/users/2", adminToken, fiber.Map{"role": "ADMIN"})
	if status != http.StatusOK {
		t.Fatalf("admin modifying member: expected 200, got %d: %s", status, body)
	}
	updated, err := s.svc.GetUserByID(context.Background(), member.ID)
	if err != nil || updated.Role != domain.RoleAdmin {
		t.Fatalf("role not updated: %v %v", updated, err)
	}
}

func TestGetMissingUser(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.registerWithToken(t, "admin@x.com", "p", "Admin", domain.RoleAdmin)

	status, body := s.do(t, http.MethodGet, "/users/999", adminToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("missing user surfaces as 400, got %d: %s", status, body)
	}
	if body != `{"error":"USER_NOT_FOUND","message":"user not found by id: 999"}` {
		t.Fatalf("unexpected not-found body: %s", body)
	}
}

func TestModifyOwnAccount(t *testing.T) {
	s := newTestServer(t)
	_, memberToken := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	status, body := s.do(t, http.MethodPut, "/users/1", memberToken, fiber.Map{
		"userName": "Alice", "password": "new-password",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var projection map[string]any
	if err := json.Unmarshal([]byte(body), &projection); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if projection["userName"] != "Alice" {
		t.Fatalf("user name not updated: %s", body)
	}

	if _, err := s.svc.Login(context.Background(), "a@x.com", "new-password"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestDeleteOwnAccount(t *testing.T) {
	s := newTestServer(t)
	_, memberToken := s.registerWithToken(t, "a@x.com", "p", "A", domain.RoleMember)

	status, body := s.do(t, http.MethodDelete, "/users/1", memberToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", status)
	}
	if body != "" {
		t.Fatalf("expected empty delete body, got %q", body)
	}

	// the token encodes a user that no longer resolves: unauthenticated, 401
	status, body = s.do(t, http.MethodGet, "/users/1", memberToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after deletion, got %d: %s", status, body)
	}
	if body != unauthorizedBody {
		t.Fatalf("unexpected 401 body: %s", body)
	}

	status, _ = s.do(t, http.MethodPost, "/signin", "", fiber.Map{"email": "a@x.com", "password": "p"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected signin to fail after deletion, got %d", status)
	}
}
