package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"retailhub/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfig(t *testing.T) {
	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: "short", ManagerPIN: "739154"}))
	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: strongSecret, ManagerPIN: "7391"}))
	assert.NoError(t, validateSecurityConfig(config.Config{AuthSecret: strongSecret, ManagerPIN: "739154"}))
}

func TestValidatePINStrength(t *testing.T) {
	for _, pin := range []string{"123456", "000000", "777777", "234567", "987654", "12a456"} {
		assert.Error(t, validatePINStrength(pin), pin)
	}
	for _, pin := range []string{"739154", "480262", "5820913"} {
		assert.NoError(t, validatePINStrength(pin), pin)
	}
}

func TestRootHandlerMountsMetrics(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	res := httptest.NewRecorder()
	rootHandler(api, true).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	rootHandler(api, true).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, res.Code)

	res = httptest.NewRecorder()
	rootHandler(api, false).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusTeapot, res.Code)
}
