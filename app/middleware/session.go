package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

const (
	actorContextKey = "session_actor"
	roleAdmin       = "admin"
)

var errMissingSubject = errors.New("token has no subject")

// SessionMiddleware authenticates bearer tokens issued by the site and puts
// the caller on the echo context.
type SessionMiddleware struct {
	secret        []byte
	adminUsername string
}

func NewSessionMiddleware(secret, adminUsername string) *SessionMiddleware {
	return &SessionMiddleware{
		secret:        []byte(secret),
		adminUsername: strings.TrimSpace(adminUsername),
	}
}

// Optional lets anonymous requests through. A token that is present but
// invalid is still rejected.
func (m *SessionMiddleware) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, present, err := m.authenticate(ctx.Request())
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid or expired token"})
			}
			if present {
				SetActor(ctx, actor)
			}
			return next(ctx)
		}
	}
}

func (m *SessionMiddleware) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, present, err := m.authenticate(ctx.Request())
			if !present {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "authorization required"})
			}
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid or expired token"})
			}
			SetActor(ctx, actor)
			return next(ctx)
		}
	}
}

func (m *SessionMiddleware) RequireAdmin() echo.MiddlewareFunc {
	requireUser := m.RequireUser()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requireUser(func(ctx echo.Context) error {
			if actor := ActorFromContext(ctx); actor == nil || !actor.Admin {
				return ctx.JSON(http.StatusForbidden, &types.ErrorResponse{Error: "access denied"})
			}
			return next(ctx)
		})
	}
}

func SetActor(ctx echo.Context, actor *service.Actor) {
	ctx.Set(actorContextKey, actor)
}

// ActorFromContext returns nil for anonymous requests.
func ActorFromContext(ctx echo.Context) *service.Actor {
	actor, _ := ctx.Get(actorContextKey).(*service.Actor)
	return actor
}

func (m *SessionMiddleware) authenticate(req *http.Request) (*service.Actor, bool, error) {
	header := strings.TrimSpace(req.Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return nil, false, nil
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return nil, true, errors.New("bearer token malformed")
	}

	token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, true, err
	}
	if !token.Valid {
		return nil, true, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, true, errors.New("invalid token claims")
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username, _ = claims.GetSubject()
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, true, errMissingSubject
	}

	role, _ := claims["role"].(string)
	return &service.Actor{
		Username: username,
		Admin:    role == roleAdmin || (m.adminUsername != "" && username == m.adminUsername),
	}, true, nil
}
