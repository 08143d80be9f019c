//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2beens/gymrotation/internal/fitness"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

type loginResponse struct {
	Token string        `json:"token"`
	User  *fitness.User `json:"user"`
}

// do sends a request to the running server. A non-nil body is sent as JSON.
func (s *IntegrationTestSuite) do(ctx context.Context, token, method, path string, body any) (int, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Token", token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) decode(raw []byte, v any) {
	require.NoError(s.T(), json.Unmarshal(raw, v), string(raw))
}

func (s *IntegrationTestSuite) login(ctx context.Context, email, password string) loginResponse {
	status, raw := s.do(ctx, "", http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(s.T(), http.StatusOK, status, string(raw))

	var resp loginResponse
	s.decode(raw, &resp)
	require.NotEmpty(s.T(), resp.Token)
	return resp
}

// registerAndLogin creates a fresh user with fake data and logs it in.
func (s *IntegrationTestSuite) registerAndLogin(ctx context.Context) (*fitness.User, string) {
	password := gofakeit.Password(true, true, true, false, false, 12)
	status, raw := s.do(ctx, "", http.MethodPost, "/users", map[string]string{
		"name":     gofakeit.Name(),
		"email":    gofakeit.Email(),
		"password": password,
		"gender":   string(fitness.GenderFemale),
	})
	require.Equal(s.T(), http.StatusCreated, status, string(raw))

	var user fitness.User
	s.decode(raw, &user)

	resp := s.login(ctx, user.Email, password)
	return &user, resp.Token
}
