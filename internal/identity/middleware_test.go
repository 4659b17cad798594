package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type fakeResolver struct {
	identity Identity
	err      error
	tokens   []string
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return Identity{}, f.err
	}
	return f.identity, nil
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := Middleware(&fakeResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsNonBearerScheme(t *testing.T) {
	resolver := &fakeResolver{}
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(resolver.tokens) != 0 {
		t.Fatal("resolver should not see non-bearer credentials")
	}
}

func TestMiddlewareRejectsUnresolvableToken(t *testing.T) {
	handler := Middleware(&fakeResolver{err: ErrUnauthenticated})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	want := Identity{UserID: uuid.New(), Email: "alice@example.com"}
	resolver := &fakeResolver{identity: want}

	var got Identity
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := FromContext(r.Context())
		if err != nil {
			t.Fatalf("from context: %v", err)
		}
		got = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != want {
		t.Fatalf("expected identity %+v, got %+v", want, got)
	}
	if len(resolver.tokens) != 1 || resolver.tokens[0] != "tok-1" {
		t.Fatalf("expected resolver to see the bearer token, got %v", resolver.tokens)
	}
}

func TestFromContextWithoutIdentity(t *testing.T) {
	if _, err := FromContext(context.Background()); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
