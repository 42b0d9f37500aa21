package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"safesphere/internal/app"
	"safesphere/internal/store"
)

type testAPI struct {
	t *testing.T
	r *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := app.New(store.New(store.NewMemory(), zerolog.Nop()), nil, zerolog.Nop(), app.Options{HashCost: bcrypt.MinCost})
	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	r := gin.New()
	New(ctrl, Config{JWTIssuer: "test", JWTSigningKey: "k", AccessTTL: time.Hour, QRSize: 64}, nil, zerolog.Nop()).Register(r)
	return &testAPI{t: t, r: r}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func (a *testAPI) signupAndLogin(email, role string) (token, userID string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/signup", "", map[string]string{
		"name": "User " + role, "email": email, "password": "secret1", "role": role, "idNumber": "ID",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/login", "", map[string]string{"emailOrId": email, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			UserID string `json:"userId"`
		} `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken, resp.User.UserID
}

func TestSignupErrorsMapToStatus(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/signup", "", map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please fill in all fields.")

	w = api.do(http.MethodPost, "/api/login", "", map[string]string{"emailOrId": "x@y.com", "password": "secret1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentFlow(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.signupAndLogin("s@x.com", "student")
	require.NotEmpty(t, userID)

	w := api.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodGet, "/api/me/qr", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// students cannot scan or read logs
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/scan/entry", token, map[string]string{"userId": userID}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/logs", token, nil).Code)

	w = api.do(http.MethodPost, "/api/incidents", token, map[string]string{"type": "Theft", "location": "Gym", "description": "Bag"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodPost, "/api/sos", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":false`)

	w = api.do(http.MethodPost, "/api/sos", token, map[string]bool{"confirm": true})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodGet, "/api/incidents?limit=1", token, nil)
	var inc struct {
		Incidents []struct {
			Status string `json:"status"`
		} `json:"incidents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	require.Len(t, inc.Incidents, 1)
	assert.Equal(t, "critical", inc.Incidents[0].Status)

	w = api.do(http.MethodPost, "/api/logout", token, map[string]bool{"confirm": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/me", token, nil).Code)
}

func TestSecurityFlow(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.signupAndLogin("sec@x.com", "security")

	w := api.do(http.MethodPost, "/api/scan/entry", token, map[string]string{"userId": userID})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = api.do(http.MethodPost, "/api/scan/exit", token, map[string]string{"userId": userID})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = api.do(http.MethodPost, "/api/scan/exit", token, map[string]string{"userId": "SSNOPE"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/logs?date="+time.Now().Format("2006-01-02"), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Logs []struct {
			Type string `json:"type"`
		} `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Logs, 2)
	assert.Equal(t, "exit", logs.Logs[0].Type)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/logs?date=yesterday", token, nil).Code)

	w = api.do(http.MethodPost, "/api/visitors", token, map[string]string{"name": "V", "purpose": "P", "phone": "", "meeting": "M"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(http.MethodPost, "/api/visitors", token, map[string]string{"name": "V", "purpose": "P", "phone": "1", "meeting": "M"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodGet, "/api/reports/daily", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":1,"exits":1,"currentlyInside":0,"visitorsToday":1}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/reports/summary", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generatedBy":"User security"`)

	w = api.do(http.MethodGet, "/api/me/attendance", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"percentage":100`)
}
