package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

// TestServicesHappyPath drives the service graph end-to-end through the same
// calls the MCP tools and HTTP handlers make: configure, scan a fixture
// organization, read the report, and check the journal trail.
func TestServicesHappyPath(t *testing.T) {
	ado := httptest.NewServer(http.HandlerFunc(fixtureOrg))
	defer ado.Close()

	services, err := wiring.BuildAppServices(wiring.Options{Dir: t.TempDir(), Actor: "e2e"})
	if err != nil {
		t.Fatalf("BuildAppServices: %v", err)
	}
	defer services.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Log("Configuring the workspace...")
	if _, err := services.Config.Configure(domain.Config{
		OrganizationURL: ado.URL,
		PAT:             "e2e-pat",
	}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	t.Log("Starting the scan...")
	events, unsubscribe := services.Publisher.Subscribe()
	defer unsubscribe()

	if err := services.Scan.StartScan(ctx, ""); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	t.Log("Waiting for scan completion...")
	waitForScanDone(t, ctx, services)

	snap := services.Scan.Status()
	if snap.Status != scan.StateCompleted {
		t.Fatalf("scan ended in %s: %s", snap.Status, snap.Error)
	}
	if snap.Percent != 100 {
		t.Errorf("completed scan percent = %d", snap.Percent)
	}

	t.Log("Checking published progress events...")
	sawScanEvent := false
	for done := false; !done; {
		select {
		case ev := <-events:
			if ev.Kind == progress.KindScan {
				sawScanEvent = true
			}
		default:
			done = true
		}
	}
	if !sawScanEvent {
		t.Error("no scan progress events published")
	}

	t.Log("Reading the report...")
	report, err := services.Scan.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if report.Summary.TotalProjects != 2 {
		t.Errorf("total projects = %d, want 2", report.Summary.TotalProjects)
	}
	if report.Summary.TotalRepositories == 0 {
		t.Error("no repositories in the report")
	}
	if report.Summary.Complexity.Overall.Rating == "" {
		t.Error("overall complexity not scored")
	}

	t.Log("Verifying the journal...")
	entries, err := services.Workspace.Journal.Timeline()
	if err != nil {
		t.Fatalf("journal Timeline: %v", err)
	}
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	joined := strings.Join(actions, ",")
	for _, want := range []string{domain.ActionConfigure, domain.ActionScanStart, domain.ActionScanComplete} {
		if !strings.Contains(joined, want) {
			t.Errorf("journal missing action %q, have %v", want, actions)
		}
	}
	if violations, err := services.Workspace.Journal.Verify(); err != nil || len(violations) > 0 {
		t.Errorf("journal verify: err=%v violations=%v", err, violations)
	}

	t.Log("Scanning a single project...")
	if err := services.Scan.StartScan(ctx, "Payments"); err != nil {
		t.Fatalf("StartScan(Payments): %v", err)
	}
	waitForScanDone(t, ctx, services)

	report, err = services.Scan.Results()
	if err != nil {
		t.Fatalf("Results after filtered scan: %v", err)
	}
	if len(report.Projects) != 1 || report.Projects[0].Name != "Payments" {
		t.Errorf("filtered scan projects = %+v", report.Projects)
	}
}

func waitForScanDone(t *testing.T, ctx context.Context, services *wiring.AppServices) {
	t.Helper()
	for !services.Scan.Status().Status.IsTerminal() {
		select {
		case <-ctx.Done():
			t.Fatalf("scan did not finish: %+v", services.Scan.Status())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// fixtureOrg serves a two-project organization with enough surface for a full
// scan: projects, repositories, pipelines, and work items.
func fixtureOrg(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	reply := func(v any) { _ = json.NewEncoder(w).Encode(v) }

	switch {
	case r.URL.Path == "/_apis/projects":
		reply(map[string]any{"value": []map[string]string{
			{"name": "Payments"},
			{"name": "Platform"},
		}})
	case strings.HasSuffix(r.URL.Path, "/_apis/git/repositories"):
		reply(map[string]any{"value": []map[string]any{
			{"id": "r1", "name": "service-api", "size": 10240},
			{"id": "r2", "name": "service-web", "size": 5120},
		}})
	case strings.Contains(r.URL.Path, "/_apis/tfvc/items"):
		reply(map[string]any{"value": []any{}})
	case strings.HasSuffix(r.URL.Path, "/_apis/pipelines"):
		reply(map[string]any{"value": []map[string]any{
			{"id": 1, "name": "ci"},
			{"id": 2, "name": "cd"},
		}})
	case strings.Contains(r.URL.Path, "/_apis/release/definitions"):
		reply(map[string]any{"value": []any{}})
	case strings.HasSuffix(r.URL.Path, "/_apis/wit/workitemtypes"):
		reply(map[string]any{"value": []map[string]any{
			{"name": "Bug"},
			{"name": "Task"},
		}})
	case strings.HasSuffix(r.URL.Path, "/_apis/wit/wiql"):
		reply(map[string]any{"workItems": []map[string]any{
			{"id": 1}, {"id": 2}, {"id": 3},
		}})
	default:
		http.NotFound(w, r)
	}
}
