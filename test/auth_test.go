//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/2beens/gymrotation/internal/fitness"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		email              string
		password           string
		expectedStatusCode int
	}{
		"good creds": {
			email:              testAdminEmail,
			password:           testAdminPassword,
			expectedStatusCode: http.StatusOK,
		},
		"email is case insensitive": {
			email:              "ADMIN@gymrotation.test",
			password:           testAdminPassword,
			expectedStatusCode: http.StatusOK,
		},
		"bad password": {
			email:              testAdminEmail,
			password:           "bad-password",
			expectedStatusCode: http.StatusUnauthorized,
		},
		"unknown user": {
			email:              "nobody@gymrotation.test",
			password:           testAdminPassword,
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, raw := s.do(ctx, "", http.MethodPost, "/auth/login", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			require.Equal(t, tc.expectedStatusCode, status, string(raw))
			if status != http.StatusOK {
				return
			}

			var resp loginResponse
			s.decode(raw, &resp)
			assert.NotEmpty(t, resp.Token)
			require.NotNil(t, resp.User)
			assert.Equal(t, s.admin.ID, resp.User.ID)
			assert.Equal(t, fitness.RoleAdmin, resp.User.Role)
		})
	}
}

func (s *IntegrationTestSuite) TestTokenAndLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user, token := s.registerAndLogin(ctx)

	status, raw := s.do(ctx, token, http.MethodGet, "/auth/token", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var tokenResp loginResponse
	s.decode(raw, &tokenResp)
	assert.Equal(t, token, tokenResp.Token)
	require.NotNil(t, tokenResp.User)
	assert.Equal(t, user.ID, tokenResp.User.ID)

	status, _ = s.do(ctx, token, http.MethodGet, "/users/"+user.ID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(ctx, token, http.MethodGet, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)

	// the session is gone from redis and from the login checker cache
	status, _ = s.do(ctx, token, http.MethodGet, "/users/"+user.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(ctx, "", http.MethodGet, "/users/"+user.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
