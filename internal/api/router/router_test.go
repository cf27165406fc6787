package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/api/handler"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/metrics"
)

func setupEngine(t *testing.T) (http.Handler, *jwt.Manager) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{CORS: config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}}},
		Auth: config.AuthConfig{
			JWTSecret:      "router-test-secret-key",
			AccessTokenTTL: time.Hour,
			ResetTokenTTL:  time.Minute,
		},
	}
	mgr := jwt.NewManager(&cfg.Auth)

	// 守卫拦截的请求不会进入 Handler，服务可以为空
	h := &handler.Handler{
		Auth:        handler.NewAuthHandler(nil),
		User:        handler.NewUserHandler(nil),
		Maintenance: handler.NewMaintenanceHandler(nil, nil, nil),
		Booking:     handler.NewBookingHandler(nil),
		Appointment: handler.NewAppointmentHandler(nil, nil),
		Report:      handler.NewReportHandler(nil),
		Realtime:    handler.NewRealtimeHandler(nil),
	}
	return Setup(cfg, h, Deps{JWT: mgr, Metrics: metrics.New()}, zap.NewNop()), mgr
}

func request(t *testing.T, engine http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	engine, _ := setupEngine(t)

	if w := request(t, engine, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w := request(t, engine, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="/health"`) {
		t.Error("指标中应包含 /health 请求")
	}
}

func TestRouteGuards(t *testing.T) {
	engine, mgr := setupEngine(t)
	token := func(role model.Role) string {
		s, err := mgr.GenerateAccessToken(1, "auth-1", string(role))
		if err != nil {
			t.Fatalf("生成 Token 失败: %v", err)
		}
		return s
	}
	student := token(model.RoleStudent)
	admin := token(model.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"me without token", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"student on staff list", http.MethodGet, "/api/v1/appointments", student, http.StatusForbidden},
		{"student on users", http.MethodGet, "/api/v1/users", student, http.StatusForbidden},
		{"admin on users", http.MethodGet, "/api/v1/users", admin, http.StatusForbidden},
		{"admin on students", http.MethodGet, "/api/v1/students", admin, http.StatusForbidden},
		{"admin on reports", http.MethodGet, "/api/v1/reports/appointments", admin, http.StatusForbidden},
		{"admin on booking", http.MethodGet, "/api/v1/booking/draft", admin, http.StatusForbidden},
		{"admin on own history", http.MethodGet, "/api/v1/appointments/mine", admin, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", admin, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := request(t, engine, tt.method, tt.path, tt.token); w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
