package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/archivist/pkg/routes"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + r.PathValue("id")))
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux,
		routes.Group{
			Prefix: "/workflows",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: named("list")},
				{Method: "GET", Pattern: "/{id}", Handler: named("find")},
				{Method: "POST", Pattern: "/{id}/execute", Handler: named("execute")},
			},
			Children: []routes.Group{
				{
					Prefix: "/{id}/logs",
					Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: named("logs")}},
				},
			},
		},
		routes.Group{
			Prefix: "/schedules",
			Routes: []routes.Route{{Method: "POST", Pattern: "/process", Handler: named("process")}},
		},
	)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET", "/workflows", http.StatusOK, "list:"},
		{"GET", "/workflows/9", http.StatusOK, "find:9"},
		{"POST", "/workflows/9/execute", http.StatusOK, "execute:9"},
		{"GET", "/workflows/9/logs", http.StatusOK, "logs:9"},
		{"POST", "/schedules/process", http.StatusOK, "process:"},
		{"DELETE", "/workflows/9", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
