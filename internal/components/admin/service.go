package admin

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/sweetshop/console/internal/backend"
)

var (
	ErrSelfDelete      = errors.New("cannot delete your own account")
	ErrInvalidQuantity = errors.New("restock quantity must be a positive number")
)

type (
	servicer interface {
		LoadDashboard(context.Context, string) *DashboardData
		CreateSweet(context.Context, string, backend.SweetFields, *backend.Image) (*backend.Sweet, error)
		GetSweet(context.Context, string, int) (*backend.Sweet, error)
		UpdateSweet(context.Context, string, int, backend.SweetUpdate, *backend.Image) (*UpdateResult, error)
		Restock(context.Context, string, int, int) (*backend.Sweet, error)
		DeleteSweet(context.Context, string, int) error
		DeleteUser(ctx context.Context, token string, callerID, id int) error
	}
	service struct {
		api *backend.Client
	}
)

func NewService(api *backend.Client) servicer {
	return &service{api: api}
}

// LoadDashboard fetches the inventory and the user list concurrently and
// joins both before returning, so the loading state clears exactly once.
// Each fetch records its own error; one failing does not block the other.
func (s *service) LoadDashboard(ctx context.Context, token string) *DashboardData {
	data := &DashboardData{}

	g := new(errgroup.Group)
	g.Go(func() error {
		data.Sweets, data.SweetsErr = s.api.ListSweets(ctx, token)
		return nil
	})
	g.Go(func() error {
		data.Users, data.UsersErr = s.api.ListUsers(ctx, token)
		return nil
	})
	g.Wait()

	return data
}

func (s *service) CreateSweet(ctx context.Context, token string, fields backend.SweetFields, image *backend.Image) (*backend.Sweet, error) {
	return s.api.CreateSweet(ctx, token, fields, image)
}

func (s *service) GetSweet(ctx context.Context, token string, id int) (*backend.Sweet, error) {
	return s.api.GetSweet(ctx, token, id)
}

// UpdateSweet runs the two-step edit: field update first, then the image as
// an independent call. The steps are not transactional; if the image upload
// fails the field update stands and ImageErr carries the partial failure for
// the caller to surface.
func (s *service) UpdateSweet(ctx context.Context, token string, id int, update backend.SweetUpdate, image *backend.Image) (*UpdateResult, error) {
	sweet, err := s.api.UpdateSweet(ctx, token, id, update)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{Sweet: sweet}
	if image == nil {
		return result, nil
	}

	withImage, err := s.api.UpdateSweetImage(ctx, token, id, *image)
	if err != nil {
		result.ImageErr = err
		return result, nil
	}
	result.Sweet = withImage
	return result, nil
}

// Restock rejects non-positive quantities before any call is made.
func (s *service) Restock(ctx context.Context, token string, id, quantity int) (*backend.Sweet, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.api.Restock(ctx, token, id, quantity)
}

func (s *service) DeleteSweet(ctx context.Context, token string, id int) error {
	return s.api.DeleteSweet(ctx, token, id)
}

// DeleteUser refuses to delete the calling admin's own account. The UI also
// hides the action for the caller's own row.
func (s *service) DeleteUser(ctx context.Context, token string, callerID, id int) error {
	if id == callerID {
		return ErrSelfDelete
	}
	return s.api.DeleteUser(ctx, token, id)
}
