// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/types"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{Endpoint: srv.URL, Model: "llama3.2"})
	return srv, c
}

func TestGenerate_Success(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:     "llama3.2",
			Message:   ollamaMessage{Role: "assistant", Content: "hi there"},
			Done:      true,
			EvalCount: 3,
		})
	})

	resp, err := c.Generate(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "hello"},
	}, types.GenerateParams{})

	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 3, resp.TokenCount)
}

func TestGenerate_APIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := c.Generate(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "hello"},
	}, types.GenerateParams{})
	assert.Error(t, err)
}

func TestHealth_Unreachable(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://127.0.0.1:1"})
	err := c.Health(context.Background())
	assert.Error(t, err)
}

func TestHealth_OK(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, c.Health(context.Background()))
}

func TestLoad_SendsKeepAlive(t *testing.T) {
	var got chatRequest
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(chatResponse{Done: true})
	})

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, "30m", got.KeepAlive)
}

func TestUnload_SendsZeroKeepAlive(t *testing.T) {
	var got chatRequest
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(chatResponse{Done: true})
	})

	require.NoError(t, c.Unload(context.Background()))
	assert.Equal(t, "0", got.KeepAlive)
}
