package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/tenderscan/internal/model"
)

// TestRecorder tests counting and textfile output.
func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveRequest("handshake", 200)
	r.ObserveRequest("page", 200)
	r.ObserveRequest("page", 200)
	r.ObserveRequest("page", 0)
	r.ObservePage(model.OutcomeComplete)
	r.ObservePage(model.OutcomePartial)
	r.ObserveRecords(model.NoticeTender, 3)
	r.ObserveRecords(model.NoticeAward, 1)
	r.ObserveRecords(model.NoticeAward, 0)

	failed := model.NewYearRun(uuid.New(), "q", 112)
	failed.PagesFailed = 1
	r.ObserveYear(failed)
	r.ObserveRun(90*time.Second, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "tenderscan.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`tenderscan_requests_total{phase="handshake",status="200"} 1`,
		`tenderscan_requests_total{phase="page",status="200"} 2`,
		`tenderscan_requests_total{phase="page",status="error"} 1`,
		`tenderscan_pages_total{outcome="complete"} 1`,
		`tenderscan_pages_total{outcome="partial"} 1`,
		`tenderscan_records_total{kind="tender"} 3`,
		`tenderscan_records_total{kind="award"} 1`,
		`tenderscan_years_total{status="partial"} 1`,
		`tenderscan_run_duration_seconds 90`,
		`tenderscan_last_run_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

// TestRecorder_Registry tests that recorders do not share state.
func TestRecorder_Registry(t *testing.T) {
	t.Parallel()

	a, b := NewRecorder(), NewRecorder()
	a.ObservePage(model.OutcomeEmpty)

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "tenderscan_pages_total" && len(f.GetMetric()) > 0 {
			t.Error("second recorder should not see the first recorder's pages")
		}
	}
}
