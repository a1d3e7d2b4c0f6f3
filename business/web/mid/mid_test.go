package mid_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vxoid/rbc/business/web/errs"
	"github.com/vxoid/rbc/business/web/mid"
	"github.com/vxoid/rbc/foundation/logger"
	"github.com/vxoid/rbc/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestMiddleware(t *testing.T) {
	log, err := logger.New("TEST", filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("Should be able to construct a logger: %s", err)
	}

	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Cors("*"), mid.Panics())

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("account not found"), http.StatusNotFound)
	})
	app.Handle(http.MethodGet, "v1", "/internal", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("disk on fire")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	tt := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"trusted", "/v1/trusted", http.StatusNotFound, "account not found"},
		{"internal", "/v1/internal", http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)},
		{"panic", "/v1/panic", http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)},
	}

	t.Log("Given the need to turn handler errors into responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				w := httptest.NewRecorder()
				app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tst.path, nil))

				if w.Code != tst.status || !strings.Contains(w.Body.String(), tst.body) {
					t.Fatalf("\t%s\tTest %d:\tShould respond %d %q, got %d %s.", failed, testID, tst.status, tst.body, w.Code, w.Body.String())
				}
				t.Logf("\t%s\tTest %d:\tShould respond with the expected error.", success, testID)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the CORS headers.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould set the CORS headers.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
