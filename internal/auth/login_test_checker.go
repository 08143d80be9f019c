package auth

import (
	"context"

	"github.com/2beens/gymrotation/internal/fitness"
)

// LoginTestChecker is a fixed token table, for handler tests and local runs.
type LoginTestChecker struct {
	LoggedSessions map[string]fitness.Actor
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		map[string]fitness.Actor{},
	}
}

func (c *LoginTestChecker) Check(_ context.Context, token string) (fitness.Actor, bool, error) {
	actor, ok := c.LoggedSessions[token]
	return actor, ok, nil
}
