package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/logging"
)

func TestListCattle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cattle", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]domain.Cattle{{ID: "1", Breed: "Angus"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, logging.Null())
	records, err := c.ListCattle(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Angus", records[0].Breed)
}

func TestCreateCattleStripsLocalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload domain.Cattle
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Empty(t, payload.ID, "temp id must not reach the server")
		payload.ID = "42"
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, logging.Null())
	created, err := c.CreateCattle(context.Background(), domain.Cattle{ID: domain.NewTempID(), Breed: "Jersey"})
	require.NoError(t, err)
	assert.Equal(t, "42", created.ID)
}

func TestIdempotencyKeyHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Idempotency-Key")
		json.NewEncoder(w).Encode(domain.Cattle{ID: "42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, logging.Null())
	ctx := domain.WithIdempotencyKey(context.Background(), "change-123")
	_, err := c.CreateCattle(ctx, domain.Cattle{})
	require.NoError(t, err)
	assert.Equal(t, "change-123", got)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "", domain.ErrAuthFailed},
		{"not_found", http.StatusNotFound, "", domain.ErrRecordNotFound},
		{"bad_request", http.StatusBadRequest, `{"message":"age out of range"}`, domain.ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":"breed required"}`, domain.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "tok", time.Second, logging.Null())
			_, err := c.ListCattle(context.Background())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTransportFailureIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, "tok", time.Second, logging.Null())
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerUnreachable)
	assert.True(t, domain.IsConnectivity(err))
}

func TestDeleteCattle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cattle/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second, logging.Null())
	require.NoError(t, c.DeleteCattle(context.Background(), "7"))
}
