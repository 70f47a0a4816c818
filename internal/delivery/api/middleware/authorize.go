package middleware

import (
	"context"
	"log/slog"

	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	// OwnerFieldSelf marks a rule whose path parameter is itself a user ID.
	OwnerFieldSelf = "id"

	ResourceUser  = "user"
	ResourceEvent = "event"
)

// OwnershipRule ties a route parameter to the owner of the resource it names.
type OwnershipRule struct {
	Resource   string
	Param      string
	OwnerField string
	// PreventModeratorOnAdmin lets MODERATOR act on any non-ADMIN user.
	PreventModeratorOnAdmin bool
}

// Policy is the authorization attached to a route. Both parts are optional.
type Policy struct {
	Roles     entity.Roles
	Ownership *OwnershipRule
}

// OwnerFetcher returns the owner of a resource. found is false when the
// resource does not exist; a nil owner means nobody owns it.
type OwnerFetcher func(ctx context.Context, id uuid.UUID) (owner *uuid.UUID, found bool, err error)

// RoleLookup returns the role of a user. found is false when the user does not exist.
type RoleLookup func(ctx context.Context, id uuid.UUID) (role entity.Role, found bool, err error)

// AuthorizerParams holds dependencies for Authorizer, injected by Fx.
type AuthorizerParams struct {
	fx.In

	UserUC  usecase.UserUsecase
	EventUC usecase.EventUsecase
	Logger  *slog.Logger
}

// Authorizer builds the role and ownership guards for route policies.
type Authorizer struct {
	fetchers map[string]OwnerFetcher
	roleOf   RoleLookup
	logger   *slog.Logger
}

func NewAuthorizer(params AuthorizerParams) *Authorizer {
	return NewAuthorizerWithFetchers(params.UserUC.UserRole, map[string]OwnerFetcher{
		ResourceEvent: params.EventUC.EventOwner,
	}, params.Logger)
}

func NewAuthorizerWithFetchers(roleOf RoleLookup, fetchers map[string]OwnerFetcher, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		fetchers: fetchers,
		roleOf:   roleOf,
		logger:   logger,
	}
}

// Authorize returns the guard for policy. A rule naming a resource without a
// registered fetcher is a wiring error and fails here, not per request.
func (a *Authorizer) Authorize(policy Policy) (echo.MiddlewareFunc, error) {
	rule := policy.Ownership
	if rule != nil {
		if rule.Param == "" {
			return nil, errors.Errorf("ownership rule for %q has no path parameter", rule.Resource)
		}
		if rule.OwnerField != OwnerFieldSelf {
			if _, ok := a.fetchers[rule.Resource]; !ok {
				return nil, errors.Errorf("no owner fetcher registered for resource %q", rule.Resource)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := deliverycontext.GetIdentity(c)

			if err := checkRoles(identity, policy.Roles); err != nil {
				return err
			}

			if rule != nil {
				if err := a.checkOwnership(c, identity, rule); err != nil {
					return err
				}
			}

			return next(c)
		}
	}, nil
}

// checkRoles passes anonymous requests; the access guard decides whether
// those are allowed at all.
func checkRoles(identity *entity.Identity, roles entity.Roles) error {
	if identity == nil || len(roles) == 0 {
		return nil
	}
	if !roles.Contains(identity.Role) {
		return errors.WithStack(domainerrors.ErrForbidden)
	}

	return nil
}

func (a *Authorizer) checkOwnership(c echo.Context, identity *entity.Identity, rule *OwnershipRule) error {
	if identity == nil {
		return errors.WithStack(domainerrors.ErrForbidden.WithDetails("user not authenticated"))
	}

	if identity.Role == entity.RoleAdmin {
		return nil
	}

	resourceID, err := uuid.Parse(c.Param(rule.Param))
	if err != nil {
		return errors.WithStack(domainerrors.ErrNotFound)
	}

	ctx := c.Request().Context()

	if rule.OwnerField == OwnerFieldSelf {
		return a.checkSelf(ctx, identity, rule, resourceID)
	}

	owner, found, err := a.fetchers[rule.Resource](ctx, resourceID)
	if err != nil {
		return err
	}
	if !found {
		return errors.WithStack(domainerrors.ErrNotFound)
	}
	if owner == nil || *owner != identity.UserID {
		return errors.WithStack(domainerrors.ErrForbidden)
	}

	return nil
}

func (a *Authorizer) checkSelf(ctx context.Context, identity *entity.Identity, rule *OwnershipRule, targetID uuid.UUID) error {
	role, found, err := a.roleOf(ctx, targetID)
	if err != nil {
		return err
	}
	if !found {
		return errors.WithStack(domainerrors.ErrUserNotFound)
	}

	if rule.PreventModeratorOnAdmin && identity.Role == entity.RoleModerator {
		if role == entity.RoleAdmin {
			return errors.WithStack(domainerrors.ErrForbidden.WithDetails("moderators cannot modify admin users"))
		}

		return nil
	}

	if identity.Role == entity.RoleUser && targetID != identity.UserID {
		return errors.WithStack(domainerrors.ErrForbidden)
	}

	return nil
}
