package fitness

import (
	"time"

	"github.com/2beens/gymrotation/pkg"
)

const DefaultDocsPerPage = 10

// Service implements the fitness operations on top of a Store.
// Every mutation runs in a single store transaction.
type Service struct {
	store Store

	// injectable for tests and the admin CLI
	Now          func() time.Time
	PasswordCost int
	DocsPerPage  int
}

func NewService(store Store) *Service {
	return &Service{
		store:        store,
		Now:          time.Now,
		PasswordCost: pkg.DefaultPasswordCost,
		DocsPerPage:  DefaultDocsPerPage,
	}
}

func (s *Service) page(page Page) Page {
	if page.Skip < 0 {
		page.Skip = 0
	}
	if page.Limit <= 0 {
		page.Limit = s.DocsPerPage
	}
	return page
}
