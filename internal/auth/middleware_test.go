package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuthenticatePutsActorInContext(t *testing.T) {
	studentID := uuid.New()
	token := signToken(t, &Claims{
		Sub:  studentID.String(),
		Role: RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	var actor *Actor
	handler := NewJWTMiddleware(testSecret).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	require.Equal(t, studentID, actor.ID)
	require.Equal(t, RoleStudent, actor.Role)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	handler := NewJWTMiddleware(testSecret).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	token := signToken(t, &Claims{Sub: uuid.NewString(), Role: RoleStudent})
	handler := NewJWTMiddleware("other-secret").Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	token := signToken(t, &Claims{
		Sub:  uuid.NewString(),
		Role: RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	handler := NewJWTMiddleware(testSecret).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsUnknownRole(t *testing.T) {
	token := signToken(t, &Claims{
		Sub:  uuid.NewString(),
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	handler := NewJWTMiddleware(testSecret).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleBlocksOtherRole(t *testing.T) {
	studentToken := signToken(t, &Claims{
		Sub:  uuid.NewString(),
		Role: RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	mw := NewJWTMiddleware(testSecret)
	handler := mw.Authenticate(RequireRole(RoleProfessor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(studentToken))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
