package auth

import (
	"context"

	"github.com/2beens/gymrotation/internal/fitness"
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	Check(ctx context.Context, token string) (fitness.Actor, bool, error)
}
