package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/crypto/bcrypt"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/directory/memstore"
	"github.com/MrEthical07/eduAuth/internal/uploads"
	otelexport "github.com/MrEthical07/eduAuth/metrics/export/otel"
	"github.com/MrEthical07/eduAuth/metrics/export/prometheus"
)

type server struct {
	t      *testing.T
	engine *eduAuth.Engine
	store  *memstore.Store
	router http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := eduAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("httpapi-test-secret-httpapi-test")
	cfg.OTP.Secret = "JBSWY3DPEHPK3PXP"
	cfg.Password.BcryptCost = bcrypt.MinCost

	dir := t.TempDir()
	files, err := uploads.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatalf("uploads: %v", err)
	}

	store := memstore.New()
	engine, err := eduAuth.New().
		WithConfig(cfg).
		WithDirectory(store).
		WithFileStore(files).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp, err := otelexport.NewExporter(provider.Meter("eduauth-test"), engine)
	if err != nil {
		t.Fatalf("otel exporter: %v", err)
	}
	t.Cleanup(func() { _ = exp.Close() })

	router := NewRouter(Options{
		Engine:       engine,
		UploadDir:    dir,
		UploadPrefix: "/uploads",
		Prometheus:   prometheus.NewExporter(engine),
		OTelReader:   reader,
	})
	return &server{t: t, engine: engine, store: store, router: router}
}

func (s *server) do(method, path, token string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func (s *server) sendJSON(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		s.t.Fatalf("marshal: %v", err)
	}
	return s.do(method, path, token, bytes.NewReader(data), "application/json")
}

func (s *server) expectStatus(rec *httptest.ResponseRecorder, want int) {
	s.t.Helper()
	if rec.Code != want {
		s.t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func (s *server) register(role, email, mobile string) map[string]any {
	s.t.Helper()
	rec, body := s.sendJSON(http.MethodPost, "/api/"+role+"/register", "", map[string]string{
		"name": "Test " + role, "email": email, "password": "secret", "mobile": mobile,
	})
	s.expectStatus(rec, http.StatusOK)
	return body
}

func (s *server) verify(role, email, otpType string) (string, map[string]any) {
	s.t.Helper()
	code, err := s.engine.OTPCode(time.Now())
	if err != nil {
		s.t.Fatalf("otp: %v", err)
	}
	req := map[string]string{"email": email, "otp": code}
	if otpType != "" {
		req["type"] = otpType
	}
	rec, body := s.sendJSON(http.MethodPost, "/api/"+role+"/verify-otp", "", req)
	s.expectStatus(rec, http.StatusOK)
	token, _ := body["token"].(string)
	if token == "" {
		s.t.Fatalf("expected token in %v", body)
	}
	return token, body
}

func TestLoginAndVerifyFlow(t *testing.T) {
	s := newServer(t)
	s.register("admin", "a@x.com", "9876543210")

	rec, body := s.sendJSON(http.MethodPost, "/api/admin/login", "", map[string]string{"email": "a@x.com", "password": "secret"})
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != eduAuth.MessageOTPSent {
		t.Fatalf("expected otp sent message, got %v", body)
	}
	if _, ok := body["token"]; ok {
		t.Fatal("login must not return a token")
	}

	token, body := s.verify("admin", "a@x.com", "")
	if body["message"] != eduAuth.MessageOTPVerified {
		t.Fatalf("unexpected message %v", body["message"])
	}
	data, ok := body["adminData"].(map[string]any)
	if !ok {
		t.Fatalf("expected adminData, got %v", body)
	}
	if _, leaked := data["password"]; leaked {
		t.Fatal("password hash leaked in verify-otp reply")
	}
	if data["email"] != "a@x.com" || data["admin_id"] == "" {
		t.Fatalf("unexpected adminData %v", data)
	}

	rec, body = s.do(http.MethodGet, "/api/admin/details", token, nil, "")
	s.expectStatus(rec, http.StatusOK)
	if d, ok := body["adminData"].(map[string]any); !ok || d["email"] != "a@x.com" {
		t.Fatalf("unexpected details %v", body)
	}
}

func TestLoginErrorsUseEnvelope(t *testing.T) {
	s := newServer(t)
	s.register("user", "u@x.com", "9876543210")

	rec, body := s.sendJSON(http.MethodPost, "/api/user/login", "", map[string]string{"email": "u@x.com", "password": "wrong"})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != eduAuth.ErrInvalidCredentials.Message {
		t.Fatalf("unexpected error body %v", body)
	}

	rec, body = s.sendJSON(http.MethodPost, "/api/user/login", "", map[string]string{})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != "Missing required fields: email, password" {
		t.Fatalf("unexpected error body %v", body)
	}

	rec, body = s.do(http.MethodPost, "/api/user/login", "", strings.NewReader("{"), "application/json")
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != "Invalid request body" {
		t.Fatalf("unexpected error body %v", body)
	}

	rec, body = s.sendJSON(http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Dup", "email": "u@x.com", "password": "secret", "mobile": "9123456780",
	})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != eduAuth.ErrEmailExists.Message {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	s := newServer(t)
	s.register("user", "u@x.com", "9876543210")
	session, _ := s.verify("user", "u@x.com", "")
	temp, _ := s.verify("user", "u@x.com", eduAuth.OTPTypeForgotPassword)

	cases := map[string]struct {
		path  string
		token string
	}{
		"missing":         {"/api/user/details", ""},
		"garbage":         {"/api/user/details", "not-a-token"},
		"temp as session": {"/api/user/details", temp},
		"wrong role":      {"/api/admin/details", session},
	}
	for name, tc := range cases {
		rec, _ := s.do(http.MethodGet, tc.path, tc.token, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}

	rec, _ := s.sendJSON(http.MethodPost, "/api/user/reset-password", session, map[string]string{"newPassword": "other"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected session token rejected on reset, got %d", rec.Code)
	}
}

func TestPasswordResetAndChange(t *testing.T) {
	s := newServer(t)
	s.register("user", "u@x.com", "9876543210")

	rec, body := s.sendJSON(http.MethodPost, "/api/user/forget-password", "", map[string]string{"email": "u@x.com"})
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != eduAuth.MessageOTPSent {
		t.Fatalf("unexpected forget reply %v", body)
	}

	temp, _ := s.verify("user", "u@x.com", eduAuth.OTPTypeForgotPassword)
	rec, body = s.sendJSON(http.MethodPost, "/api/user/reset-password", temp, map[string]string{"newPassword": "fresh"})
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != eduAuth.MessagePasswordReset {
		t.Fatalf("unexpected reset reply %v", body)
	}

	rec, _ = s.sendJSON(http.MethodPost, "/api/user/login", "", map[string]string{"email": "u@x.com", "password": "fresh"})
	s.expectStatus(rec, http.StatusOK)

	session, _ := s.verify("user", "u@x.com", "")
	rec, body = s.sendJSON(http.MethodPost, "/api/user/change-password", session, map[string]string{
		"currentPassword": "fresh", "newPassword": "fresh",
	})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != eduAuth.ErrPasswordReuse.Message {
		t.Fatalf("unexpected change reply %v", body)
	}

	rec, body = s.sendJSON(http.MethodPost, "/api/user/change-password", session, map[string]string{
		"currentPassword": "fresh", "newPassword": "newer",
	})
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != eduAuth.MessagePasswordChanged {
		t.Fatalf("unexpected change reply %v", body)
	}
}

func TestAdminProfileUpload(t *testing.T) {
	s := newServer(t)
	s.register("admin", "a@x.com", "9876543210")
	token, _ := s.verify("admin", "a@x.com", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Renamed")
	_ = mw.WriteField("mobile", "9123456780")
	part, err := mw.CreateFormFile(profilePictureField, "me.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()

	rec, body := s.do(http.MethodPut, "/api/admin/profile", token, &buf, mw.FormDataContentType())
	s.expectStatus(rec, http.StatusOK)
	data, ok := body["adminData"].(map[string]any)
	if !ok || data["name"] != "Renamed" || data["mobile"] != "9123456780" {
		t.Fatalf("unexpected profile reply %v", body)
	}
	pic, _ := data["profile_picture"].(string)
	if !strings.HasPrefix(pic, "/uploads/") {
		t.Fatalf("expected stored picture path, got %q", pic)
	}

	rec, _ = s.do(http.MethodGet, pic, "", nil, "")
	s.expectStatus(rec, http.StatusOK)
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("expected uploaded bytes, got %q", rec.Body.String())
	}
}

func TestProfileRouteIsAdminOnly(t *testing.T) {
	s := newServer(t)
	s.register("user", "u@x.com", "9876543210")
	token, _ := s.verify("user", "u@x.com", "")

	rec, _ := s.do(http.MethodPut, "/api/user/profile", token, strings.NewReader("name=x&mobile=9123456780"), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected no user profile route, got %d", rec.Code)
	}
}

func TestAdminManagesUsers(t *testing.T) {
	s := newServer(t)
	s.register("admin", "a@x.com", "9876543210")
	admin, _ := s.verify("admin", "a@x.com", "")

	created := s.register("user", "u@x.com", "9123456780")
	id, _ := created["userData"].(map[string]any)["user_id"].(string)
	if id == "" {
		t.Fatalf("expected user id in %v", created)
	}

	rec, body := s.sendJSON(http.MethodPatch, "/api/admin/users/"+id+"/status", admin, map[string]bool{"is_active": false})
	s.expectStatus(rec, http.StatusOK)
	if d := body["userData"].(map[string]any); d["is_active"] != false {
		t.Fatalf("expected user deactivated, got %v", d)
	}

	rec, body = s.sendJSON(http.MethodPost, "/api/user/login", "", map[string]string{"email": "u@x.com", "password": "secret"})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != eduAuth.ErrAccountInactive.Message {
		t.Fatalf("unexpected login reply %v", body)
	}

	rec, body = s.sendJSON(http.MethodPatch, "/api/admin/users/"+id+"/status", admin, map[string]string{})
	s.expectStatus(rec, http.StatusBadRequest)
	if body["error"] != "Missing required fields: is_active" {
		t.Fatalf("unexpected status reply %v", body)
	}

	rec, body = s.do(http.MethodDelete, "/api/admin/users/"+id, admin, nil, "")
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != eduAuth.MessageDeleted {
		t.Fatalf("unexpected delete reply %v", body)
	}

	rec, _ = s.do(http.MethodDelete, "/api/admin/users/"+id, admin, nil, "")
	s.expectStatus(rec, http.StatusBadRequest)
}

func TestMetricsEndpoints(t *testing.T) {
	s := newServer(t)
	s.register("user", "u@x.com", "9876543210")

	rec, _ := s.do(http.MethodGet, "/metrics", "", nil, "")
	s.expectStatus(rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "eduauth_") {
		t.Fatalf("expected eduauth metrics, got %q", rec.Body.String())
	}

	rec, body := s.do(http.MethodGet, "/metrics/otel", "", nil, "")
	s.expectStatus(rec, http.StatusOK)
	metrics, ok := body["metrics"].(map[string]any)
	if !ok || len(metrics) == 0 {
		t.Fatalf("expected otel metrics, got %v", body)
	}

	rec, body = s.do(http.MethodGet, "/health", "", nil, "")
	s.expectStatus(rec, http.StatusOK)
	if body["message"] != "ok" {
		t.Fatalf("unexpected health reply %v", body)
	}
}
