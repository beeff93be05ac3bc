package coolify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
)

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "json quoted", body: `"4.0.0-beta.300"`, want: "4.0.0-beta.300"},
		{name: "plain text", body: "4.0.0", want: "4.0.0"},
		{name: "html page", body: "<html>proxy error</html>", wantErr: true},
		{name: "empty", body: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))

			got, err := client.CheckVersion(context.Background())
			if tt.wantErr {
				var fmtErr *ResponseFormatError
				if !errors.As(err, &fmtErr) {
					t.Fatalf("expected ResponseFormatError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("version = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListServersEmptyIsErrNoServers(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := client.ListServers(context.Background())
	if !errors.Is(err, ErrNoServers) {
		t.Fatalf("expected ErrNoServers, got %v", err)
	}
}

func TestEnsureProjectFindsExisting(t *testing.T) {
	var created atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/projects":
			w.Write([]byte(`[{"uuid":"p-1","name":"Webapp"},{"uuid":"p-2","name":"other"}]`))
		case r.Method == http.MethodPost:
			created.Add(1)
			w.Write([]byte(`{"uuid":"p-new"}`))
		}
	}))

	// Name match is case-insensitive; no duplicate project gets created.
	uuid, err := client.EnsureProject(context.Background(), "webapp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uuid != "p-1" {
		t.Errorf("uuid = %q, want p-1", uuid)
	}
	if created.Load() != 0 {
		t.Error("EnsureProject created a duplicate project")
	}
}

func TestEnsureProjectCreatesWhenMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		case http.MethodPost:
			w.Write([]byte(`{"uuid":"p-new"}`))
		}
	}))

	uuid, err := client.EnsureProject(context.Background(), "webapp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uuid != "p-new" {
		t.Errorf("uuid = %q, want p-new", uuid)
	}
}

func TestPatchBuildConfigFallbackIsAdvisory(t *testing.T) {
	var patches atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := patches.Add(1)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if n == 1 {
			// Full patch rejected.
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		// git_branch-only fallback accepted.
		if len(body) != 1 || body["git_branch"] != "main" {
			t.Errorf("fallback body = %v, want git_branch only", body)
		}
		w.Write([]byte(`{}`))
	}))

	step := client.PatchBuildConfig(context.Background(), "app-1", BuildConfig{
		DockerfileLocation: "/Dockerfile",
		PortsExposes:       "3000",
		GitBranch:          "main",
	})
	if step.Outcome != OutcomeAdvisory {
		t.Errorf("outcome = %q, want %q (detail: %s)", step.Outcome, OutcomeAdvisory, step.Detail)
	}
}

func TestPatchBuildConfigFullPatchOK(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	step := client.PatchBuildConfig(context.Background(), "app-1", BuildConfig{GitBranch: "main"})
	if step.Outcome != OutcomeOK {
		t.Errorf("outcome = %q, want ok", step.Outcome)
	}
}

func TestSetEnvVarsRecordsEveryVar(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var v EnvVar
		json.NewDecoder(r.Body).Decode(&v)
		if v.Key == "BAD" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{}`))
	}))

	results := client.SetEnvVars(context.Background(), "app-1", []EnvVar{
		{Key: "DATABASE_URL", Value: "postgres://x"},
		{Key: "BAD", Value: "nope"},
		{Key: "NEXT_PUBLIC_API", Value: "https://api", IsBuildTime: true},
	})

	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	outcomes := map[string]string{}
	for _, r := range results {
		outcomes[r.Name] = r.Outcome
	}
	if outcomes["env:BAD"] != OutcomeFailed {
		t.Errorf("BAD outcome = %q, want failed", outcomes["env:BAD"])
	}
	if outcomes["env:DATABASE_URL"] != OutcomeOK {
		t.Errorf("DATABASE_URL outcome = %q, want ok", outcomes["env:DATABASE_URL"])
	}
}

func TestDeployReturnsDeploymentUUID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("uuid") != "app-1" {
			t.Errorf("uuid query = %q", r.URL.Query().Get("uuid"))
		}
		w.Write([]byte(`{"deployments":[{"message":"queued","deployment_uuid":"dep-9"}]}`))
	}))

	got, err := client.Deploy(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dep-9" {
		t.Errorf("deployment uuid = %q, want dep-9", got)
	}
}

func TestIsBuildTimeKey(t *testing.T) {
	for key, want := range map[string]bool{
		"NEXT_PUBLIC_API_URL": true,
		"VITE_APP_NAME":       true,
		"REACT_APP_KEY":       true,
		"PUBLIC_URL":          true,
		"DATABASE_URL":        false,
		"SECRET_KEY":          false,
		"":                    false,
	} {
		if got := IsBuildTimeKey(key); got != want {
			t.Errorf("IsBuildTimeKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestProvisionAbortsWhenProjectFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	result, err := client.Provision(context.Background(), ProvisionRequest{ProjectName: "demo"})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.ApplicationUUID != "" {
		t.Error("application must not be created after project failure")
	}
}

func TestProvisionContinuesPastBestEffortFailures(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/projects":
			w.Write([]byte(`[{"uuid":"p-1","name":"demo"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/applications/public":
			w.Write([]byte(`{"uuid":"app-1"}`))
		case r.Method == http.MethodPatch:
			// Build-config patch (and fallback) fail; provisioning continues.
			w.WriteHeader(http.StatusInternalServerError)
		case r.Method == http.MethodPost:
			w.Write([]byte(`{}`))
		default:
			w.Write([]byte(`{"deployments":[{"deployment_uuid":"dep-1"}]}`))
		}
	}))

	result, err := client.Provision(context.Background(), ProvisionRequest{
		ProjectName: "demo",
		ServerUUID:  "srv-1",
		Branch:      "main",
		EnvVars:     []EnvVar{{Key: "A", Value: "1"}},
		AutoDeploy:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawFailedPatch bool
	for _, s := range result.Steps {
		if s.Name == "build_config" && s.Outcome == OutcomeFailed {
			sawFailedPatch = true
		}
	}
	if !sawFailedPatch {
		t.Errorf("degraded build_config step missing from results: %+v", result.Steps)
	}
	if !result.DeployTriggered {
		t.Error("deploy should still have been attempted")
	}
}
