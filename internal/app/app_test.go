package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/mail"
	"github.com/spec-kit/ticketing-system/internal/repository/memory"
	"github.com/spec-kit/ticketing-system/internal/service"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.sent...)
}

type testEnv struct {
	container *Container
	app       *fiber.App
	outbox    *outbox
	mediaRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mediaRoot := t.TempDir()
	cfg := config.Config{
		App: config.AppConfig{
			Name:                  "ticketing-system",
			Version:               "test",
			Domain:                "http://tickets.test",
			RequestTimeoutSeconds: 5,
		},
		Auth: config.AuthConfig{
			JWTSecret:                   "test-secret",
			SessionTTLMinutes:           60,
			SessionCookie:               "session",
			VerificationTokenTTLMinutes: 30,
			VerificationMaxAgeMinutes:   30,
			BcryptCost:                  bcrypt.MinCost,
		},
		Email: config.EmailConfig{
			Backend:             "console",
			From:                "noreply@tickets.test",
			RegistrationSubject: "Welcome to Our Service!",
		},
		Storage: config.StorageConfig{MediaRoot: mediaRoot, MaxUploadBytes: 1 << 20},
	}

	box := &outbox{}
	container, err := New(context.Background(), cfg, zap.NewNop(), WithMemoryStore(memory.NewStore()), WithSender(box))
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return &testEnv{container: container, app: container.HTTPApp(), outbox: box, mediaRoot: mediaRoot}
}

type apiResponse struct {
	Status  int
	Body    map[string]any
	Cookies []*http.Cookie
}

func (r apiResponse) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r apiResponse) errorField(name string) any {
	errBody, _ := r.Body["error"].(map[string]any)
	return errBody[name]
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) apiResponse {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := apiResponse{Status: resp.StatusCode, Cookies: resp.Cookies()}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (e *testEnv) json(t *testing.T, method, path string, body any, token string) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.do(t, req, token)
}

func (e *testEnv) seedProfile(t *testing.T, username string, role domain.Role) *domain.Profile {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("password", bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{Email: username + "@tickets.test", Username: username, PasswordHash: hash, IsActive: true, IsVerified: true}
	require.NoError(t, e.container.Repos.Users.Create(ctx, user))
	profile := &domain.Profile{UserID: user.ID, Role: role}
	require.NoError(t, e.container.Repos.Profiles.Create(ctx, profile))
	return profile
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.json(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	token, _ := resp.data()["token"].(string)
	require.NotEmpty(t, token)
	return token
}

var verifyURL = regexp.MustCompile(`http://tickets\.test(/verify-email/\S+)`)

func TestRegistrationVerificationLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.json(t, http.MethodPost, "/register", map[string]string{
		"email": "jane@tickets.test", "username": "jane", "password": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	assert.Equal(t, "/login", resp.data()["redirect"])

	msgs := env.outbox.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"jane@tickets.test"}, msgs[0].To)
	match := verifyURL.FindStringSubmatch(msgs[0].Text)
	require.Len(t, match, 2)

	resp = env.json(t, http.MethodPost, "/login", map[string]string{"email": "jane@tickets.test", "password": "correct-horse"}, "")
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", resp.errorField("code"))
	assert.Equal(t, "Please verify your email before logging in.", resp.errorField("message"))

	resp = env.json(t, http.MethodGet, match[1], nil, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "success", resp.data()["status"])

	resp = env.json(t, http.MethodGet, match[1], nil, "")
	assert.Equal(t, "already_verified", resp.data()["status"])

	resp = env.json(t, http.MethodPost, "/login", map[string]string{"email": "jane@tickets.test", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "/tickets", resp.data()["redirect"])

	var session *http.Cookie
	for _, cookie := range resp.Cookies {
		if cookie.Name == "session" {
			session = cookie
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: session.Value})
	resp = env.do(t, req, "")
	require.Equal(t, http.StatusOK, resp.Status)
	profile, _ := resp.data()["profile"].(map[string]any)
	assert.Equal(t, "customer", profile["role"])
}

func TestRegistrationValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.json(t, http.MethodPost, "/register", map[string]string{"email": "not-an-email", "username": "jane"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.errorField("code"))
	details, _ := resp.errorField("details").(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Empty(t, env.outbox.messages())
}

func TestVerifyEmailWithBadToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.json(t, http.MethodGet, "/verify-email/garbage", nil, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "error", resp.data()["status"])
	assert.Equal(t, service.MsgInvalidToken, resp.data()["message"])
}

func TestTicketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedProfile(t, "ada", domain.RoleAdmin)
	staff := env.seedProfile(t, "sam", domain.RoleStaff)
	env.seedProfile(t, "cora", domain.RoleCustomer)
	env.seedProfile(t, "stan", domain.RoleCustomer)
	require.NotEmpty(t, admin.ID)

	adminToken := env.login(t, "ada@tickets.test", "password")
	staffToken := env.login(t, "sam@tickets.test", "password")
	customerToken := env.login(t, "cora@tickets.test", "password")
	strangerToken := env.login(t, "stan@tickets.test", "password")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("subject", "Broken laptop"))
	require.NoError(t, form.WriteField("description", "Screen flickers"))
	part, err := form.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("diagnostics"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/tickets/create", &body)
	req.Header.Set(fiber.HeaderContentType, form.FormDataContentType())
	resp := env.do(t, req, customerToken)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	created := resp.data()
	ticketID, _ := created["ticket_id"].(string)
	require.NotEmpty(t, ticketID)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "medium", created["priority"])
	file, _ := created["file"].(string)
	require.True(t, strings.HasPrefix(file, "tickets/files/"), file)
	content, err := os.ReadFile(filepath.Join(env.mediaRoot, file))
	require.NoError(t, err)
	assert.Equal(t, "diagnostics", string(content))

	download := httptest.NewRequest(http.MethodGet, "/tickets/"+ticketID+"/file", nil)
	download.Header.Set(fiber.HeaderAuthorization, "Bearer "+customerToken)
	raw, err := env.app.Test(download, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Contains(t, raw.Header.Get(fiber.HeaderContentDisposition), `filename="notes.txt"`)
	downloaded, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, "diagnostics", string(downloaded))

	resp = env.json(t, http.MethodGet, "/tickets/"+ticketID+"/file", nil, strangerToken)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = env.json(t, http.MethodGet, "/profile", nil, staffToken)
	counts, _ := resp.data()["counts"].(map[string]any)
	assert.Equal(t, float64(0), counts["in_progress"])

	resp = env.json(t, http.MethodGet, "/tickets/"+ticketID, nil, strangerToken)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	resp = env.json(t, http.MethodGet, "/tickets/"+ticketID, nil, staffToken)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/assign", map[string]string{"assigned_to": staff.ID}, staffToken)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, service.MsgAssignForbidden, resp.errorField("message"))

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/assign", map[string]string{"assigned_to": admin.ID}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/assign", map[string]string{"assigned_to": staff.ID}, adminToken)
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "in_progress", resp.data()["status"])
	assert.Equal(t, staff.ID, resp.data()["assigned_to"])
	assert.Equal(t, service.MsgTicketAssigned, resp.Body["message"])

	resp = env.json(t, http.MethodGet, "/profile", nil, staffToken)
	counts, _ = resp.data()["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["in_progress"])

	resp = env.json(t, http.MethodGet, "/tickets", nil, staffToken)
	require.Equal(t, http.StatusOK, resp.Status)
	tickets, _ := resp.data()["tickets"].([]any)
	assert.Len(t, tickets, 1)

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/close", nil, customerToken)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, service.MsgCloseForbidden, resp.errorField("message"))

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/close", map[string]string{"closing_message": "replaced cable"}, staffToken)
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "closed", resp.data()["status"])

	resp = env.json(t, http.MethodPost, "/tickets/"+ticketID+"/close", nil, staffToken)
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, "INVALID_STATE", resp.errorField("code"))

	resp = env.json(t, http.MethodGet, "/tickets/"+ticketID, nil, customerToken)
	require.Equal(t, http.StatusOK, resp.Status)
	history, _ := resp.data()["history"].([]any)
	assert.Len(t, history, 3)

	snapshot := env.container.Metrics.Snapshot()
	assert.Equal(t, int64(1), snapshot.Events[string(events.EventTicketAssigned)])
}

func TestTicketListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "cora", domain.RoleCustomer)
	token := env.login(t, "cora@tickets.test", "password")

	resp := env.json(t, http.MethodGet, "/tickets", nil, token)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, float64(0), resp.data()["total"])

	resp = env.json(t, http.MethodPost, "/tickets/create", map[string]string{"subject": "VPN"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.json(t, http.MethodPost, "/tickets/create", map[string]string{"subject": "VPN", "description": "down"}, token)
	require.Equal(t, http.StatusCreated, resp.Status)

	resp = env.json(t, http.MethodGet, "/tickets?status=pending&q=vpn", nil, token)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, float64(1), resp.data()["total"])

	resp = env.json(t, http.MethodGet, "/tickets?status=bogus", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.json(t, http.MethodGet, "/tickets?page=5", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/tickets", "/profile"} {
		resp := env.json(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.Status, path)
		assert.Equal(t, "UNAUTHORIZED", resp.errorField("code"))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "cora", domain.RoleCustomer)
	token := env.login(t, "cora@tickets.test", "password")

	resp := env.json(t, http.MethodPost, "/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = env.json(t, http.MethodGet, "/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestStaffDirectoryIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "ada", domain.RoleAdmin)
	env.seedProfile(t, "sam", domain.RoleStaff)

	resp := env.json(t, http.MethodGet, "/profiles/staff", nil, env.login(t, "ada@tickets.test", "password"))
	require.Equal(t, http.StatusOK, resp.Status)
	staff, _ := resp.Body["data"].([]any)
	assert.Len(t, staff, 1)

	resp = env.json(t, http.MethodGet, "/profiles/staff", nil, env.login(t, "sam@tickets.test", "password"))
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.json(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = env.json(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.Status)
	deps, _ := resp.Body["dependencies"].(map[string]any)
	assert.Equal(t, "in-memory", deps["postgres"])
	assert.Equal(t, "in-memory", deps["redis"])

	resp = env.json(t, http.MethodGet, "/health/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.Status)
}
