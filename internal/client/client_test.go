package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shyim/lighthouse-bench/internal/client"
	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure(t *testing.T) {
	var got models.MeasureRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/measure", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(models.MeasurementResult{
			URL:        got.URL,
			PresetKey:  got.Preset,
			MeasuredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Metrics:    models.Metrics{Score: 87, LCPMs: 1200, FCPMs: 600, TBTMs: 30},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL+"/", "tok")
	res, err := c.Measure(context.Background(), "https://example.com", "mobile-slow4g")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "mobile-slow4g", got.Preset)
	assert.Equal(t, 87, res.Metrics.Score)
	assert.Equal(t, 1200, res.Metrics.LCPMs)
	assert.Equal(t, "mobile-slow4g", res.PresetKey)
}

func TestMeasureServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Chrome exited"})
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, "").Measure(context.Background(), "https://example.com", "")
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Chrome exited", apiErr.Message)
}

func TestMeasureNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, "").Measure(context.Background(), "https://example.com", "")

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestPresets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/presets", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]models.PresetInfo{{Key: "no-throttling", DisplayName: "No throttling"}})
	}))
	defer srv.Close()

	presets, err := client.New(srv.URL, "").Presets(context.Background())
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "no-throttling", presets[0].Key)
}

func TestMeasureHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.New(srv.URL, "").Measure(ctx, "https://example.com", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
