package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/vxoid/rbc/foundation/validate"
	"github.com/vxoid/rbc/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestApp(t *testing.T) {
	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown, mw("app"))

	app.Handle(http.MethodGet, "v1", "/echo/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}
		resp := struct {
			Name    string `json:"name"`
			TraceID string `json:"trace_id"`
		}{
			Name:    web.Param(r, "name"),
			TraceID: v.TraceID,
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}, mw("route"))

	app.Handle(http.MethodGet, "v1", "/integrity", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	})

	t.Log("Given the need to route requests through middleware.")
	{
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo/bill", nil))

		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"bill"`) {
			t.Fatalf("\t%s\tShould get the path parameter back: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould get the path parameter back.", success)

		if !strings.Contains(w.Body.String(), `"trace_id":"`) || w.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("\t%s\tShould respond with json and a trace id.", failed)
		}
		t.Logf("\t%s\tShould respond with json and a trace id.", success)

		if len(order) != 2 || order[0] != "app" || order[1] != "route" {
			t.Fatalf("\t%s\tShould run app middleware first: %v", failed, order)
		}
		t.Logf("\t%s\tShould run app middleware first.", success)
	}

	t.Log("Given a handler reporting an integrity issue.")
	{
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/integrity", nil))

		select {
		case <-shutdown:
			t.Logf("\t%s\tShould signal a shutdown.", success)
		default:
			t.Fatalf("\t%s\tShould signal a shutdown.", failed)
		}
	}
}

func TestDecode(t *testing.T) {
	type model struct {
		Name string `json:"name" validate:"required"`
	}

	t.Log("Given the need to decode request bodies.")
	{
		var m model
		if err := web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"bill"}`)), &m); err != nil || m.Name != "bill" {
			t.Fatalf("\t%s\tShould decode a valid body: %v", failed, err)
		}
		t.Logf("\t%s\tShould decode a valid body.", success)

		if err := web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nom":"bill"}`)), &m); err == nil {
			t.Fatalf("\t%s\tShould reject unknown fields.", failed)
		}
		t.Logf("\t%s\tShould reject unknown fields.", success)

		err := web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), &model{})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould reject a body failing validation.", failed)
		}
		t.Logf("\t%s\tShould reject a body failing validation.", success)
	}
}
