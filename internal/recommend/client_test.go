package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofinance/internal/core"
)

func TestChatClientComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  **Ahorra** más \n"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL+"/api/v1/", "secret", "", time.Second)
	text, err := c.Complete(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "**Ahorra** más", text)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hola", got.Messages[0].Content)
}

func TestChatClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "status 429")
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrEmptyCompletion))
		}},
		{"provider error", http.StatusOK, `{"error":{"message":"model overloaded"}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "model overloaded")
		}},
		{"bad json", http.StatusOK, `{`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "decode")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewChatClient(srv.URL, "k", "m", time.Second).Complete(context.Background(), "x")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	txs := []core.Transaction{{
		Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "Supermercado",
		Category:    "Alimentación",
		Type:        core.Expense,
		Amount:      core.MoneyFromInt(45990),
	}}
	p := BuildPrompt(txs)
	assert.Contains(t, p, "2024-03-02 - Supermercado - Alimentación - GASTO - $45990")
	assert.Contains(t, p, "EcoFinance")
	assert.Contains(t, p, core.SavingsCategory)
}
