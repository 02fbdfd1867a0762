package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leadhub/apiserver/config"
	"github.com/leadhub/apiserver/internal/services"
	"github.com/leadhub/apiserver/internal/store"
	"github.com/leadhub/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := f.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrDuplicateEmail
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) addUser(t *testing.T, email, password string) types.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := f.Create(context.Background(), types.User{Email: email, PasswordHash: string(hashed)})
	require.NoError(t, err)
	return user
}

func newAuthHandler(repo *fakeUserRepo) *AuthHandler {
	return NewAuthHandler(services.NewUserService(repo), testSecret, config.CookieConfig{SameSite: "lax"})
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := issueToken(7, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	userID, err := parseTokenSubject(token, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, 7, userID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := issueToken(7, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte("other-secret"))
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := issueToken(7, []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte(testSecret))
	require.Error(t, err)
}

func TestRequireSessionWithoutCookie(t *testing.T) {
	handler := newAuthHandler(newFakeUserRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	handler.RequireSession(failIfCalled(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Not authorized")
}

func TestRequireSessionWithGarbageToken(t *testing.T) {
	handler := newAuthHandler(newFakeUserRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-jwt"})
	handler.RequireSession(failIfCalled(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionDeletedUser(t *testing.T) {
	// A valid token whose subject no longer exists must be treated the
	// same as no token at all.
	handler := newAuthHandler(newFakeUserRepo())

	token, err := issueToken(99, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	handler.RequireSession(failIfCalled(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionResolvesUser(t *testing.T) {
	repo := newFakeUserRepo()
	user := repo.addUser(t, "a@example.com", "pw")
	handler := newAuthHandler(repo)

	token, err := issueToken(user.ID, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	var gotID int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = userIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	handler.RequireSession(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.ID, gotID)
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	handler := newAuthHandler(newFakeUserRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"new@example.com","password":"Password123!"}`))
	handler.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"new@example.com"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	require.Equal(t, sessionCookieName, cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.NotEmpty(t, cookie.Value)
	require.Equal(t, int(defaultTokenTTL/time.Second), cookie.MaxAge)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser(t, "dup@example.com", "pw")
	handler := newAuthHandler(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"dup@example.com","password":"other"}`))
	handler.Register(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "User already exists")
}

func TestLoginDoesNotLeakAccountExistence(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addUser(t, "known@example.com", "right-password")
	handler := newAuthHandler(repo)

	wrongPassword := httptest.NewRecorder()
	handler.Login(wrongPassword, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"known@example.com","password":"wrong"}`)))

	unknownEmail := httptest.NewRecorder()
	handler.Login(unknownEmail, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"wrong"}`)))

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	user := repo.addUser(t, "known@example.com", "right-password")
	handler := newAuthHandler(repo)

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"known@example.com","password":"right-password"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)

	userID, err := parseTokenSubject(rec.Result().Cookies()[0].Value, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestLogoutExpiresCookie(t *testing.T) {
	handler := newAuthHandler(newFakeUserRepo())

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sessionCookieName, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.True(t, cookies[0].Expires.Before(time.Now()))
}

func failIfCalled(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})
}
