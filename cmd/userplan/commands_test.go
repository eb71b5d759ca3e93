package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdfgate/internal/adapter/sqlitestore"
	"pdfgate/internal/domain"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	store, err := sqlitestore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	err = store.UpsertProfile(context.Background(), domain.Profile{
		ID:               "u-1",
		Email:            "owner@example.com",
		Plan:             domain.PlanFree,
		CreditsRemaining: 2,
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	now := time.Now().UTC()
	for i, at := range []time.Time{now.Add(-time.Hour), now.Add(-2 * time.Hour), now.Add(-48 * time.Hour)} {
		err = store.AppendUsage(context.Background(), &domain.UsageLogEntry{
			ID:        fmt.Sprintf("log-%d", i),
			UserID:    "u-1",
			ToolID:    "compress",
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("AppendUsage: %v", err)
		}
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowAndSet(t *testing.T) {
	db := seedDB(t)
	base := []string{"--driver", "sqlite", "--sqlite-path", db}

	out, err := run(t, append([]string{"show", "--id", "u-1"}, base...)...)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "plan=free") || !strings.Contains(out, "credits=2") {
		t.Fatalf("unexpected show output: %s", out)
	}
	if !strings.Contains(out, "conversions_24h=2") {
		t.Fatalf("show should count only the last day of usage: %s", out)
	}

	out, err = run(t, append([]string{"set", "--email", "OWNER@example.com", "--plan", "pro"}, base...)...)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !strings.Contains(out, "free -> pro") || !strings.Contains(out, "credits=2") {
		t.Fatalf("unexpected set output: %s", out)
	}

	out, err = run(t, append([]string{"set", "--id", "u-1", "--plan", "free", "--credits", "10"}, base...)...)
	if err != nil {
		t.Fatalf("set credits: %v", err)
	}
	if !strings.Contains(out, "credits=10") {
		t.Fatalf("unexpected set output: %s", out)
	}
}

func TestSetRejectsUnknownPlan(t *testing.T) {
	db := seedDB(t)
	_, err := run(t, "set", "--id", "u-1", "--plan", "premium", "--driver", "sqlite", "--sqlite-path", db)
	if err == nil || !strings.Contains(err.Error(), "unsupported plan") {
		t.Fatalf("error = %v", err)
	}
}

func TestCheck(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, "check", "--id", "u-1", "--tool", "PDF to DWG", "--driver", "sqlite", "--sqlite-path", db)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "allowed=false") || !strings.Contains(out, "reason=PLAN_REQUIRED") {
		t.Fatalf("unexpected check output: %s", out)
	}

	out, err = run(t, "check", "--id", "missing", "--tool", "compress", "--driver", "sqlite", "--sqlite-path", db)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "reason=ACCESS_DENIED") {
		t.Fatalf("unexpected check output: %s", out)
	}
}

func TestShowRequiresSelector(t *testing.T) {
	db := seedDB(t)
	if _, err := run(t, "show", "--driver", "sqlite", "--sqlite-path", db); err == nil {
		t.Fatal("expected error without --id or --email")
	}
}
