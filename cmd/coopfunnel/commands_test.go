package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/coopfunnel/internal/assessment"
	"github.com/metalagman/coopfunnel/internal/config"
	"github.com/metalagman/coopfunnel/internal/db"
	"github.com/metalagman/coopfunnel/internal/funnel"
	"go.uber.org/fx"
)

func writeTestFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, envFile, debug = "", ".env", false
	})
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := runRoot(t, "score",
		"--pontualidade", "sempre", "--epi_uniforme", "sim", "--rotas_app", "parcial",
		"--finais_semana", "Sim", "--boas_praticas", "nunca")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "total") || !strings.Contains(out, "7/10") || !strings.Contains(out, "aprovado") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestScoreCommand_JSON(t *testing.T) {
	out, err := runRoot(t, "score", "--json", "--pontualidade", "raramente")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res assessment.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Total != 0 || res.Passed || len(res.Items) != 5 {
		t.Fatalf("result = %+v", res)
	}
}

func seedJournal(t *testing.T, path string) {
	t.Helper()
	storeDB, err := db.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	store := db.NewStore(storeDB)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	for _, l := range []funnel.Lead{
		{CreatedAt: now.Add(-time.Hour), Name: "Maria", Contact: "5581", City: "Recife", Approved: true, PositionID: "7", Employer: "Farmácia Boa Vida"},
		{CreatedAt: now.Add(-2 * time.Hour), Name: "João", Contact: "5582", City: "Manaus", Notes: "interesse registrado: sem vagas na cidade"},
	} {
		if err := store.Append(ctx, l); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.RecordTurn(ctx, db.TurnRecord{
		UserID:      "5581",
		StartedAt:   now.Add(-time.Hour),
		Driver:      "deterministic",
		StepBefore:  funnel.StepPositionOffered,
		StepAfter:   funnel.StepComplete,
		Outcome:     "ok",
		Duration:    120 * time.Millisecond,
		Transitions: []funnel.Transition{{From: funnel.StepPositionOffered, To: funnel.StepPositionSelected, Event: funnel.EventSelect}, {From: funnel.StepPositionSelected, To: funnel.StepComplete, Event: funnel.EventComplete}},
	}); err != nil {
		t.Fatalf("record turn: %v", err)
	}
}

func journalConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.db")
	seedJournal(t, journal)
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := writeTestFile(cfgPath, "ledger:\n  journal_path: "+journal+"\n"); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLeadsCommand(t *testing.T) {
	cfgPath := journalConfig(t)

	out, err := runRoot(t, "leads", "--config", cfgPath)
	if err != nil {
		t.Fatalf("leads: %v", err)
	}
	if !strings.Contains(out, "Maria") || !strings.Contains(out, "João") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "Maria") > strings.Index(out, "João") {
		t.Fatalf("leads not newest first:\n%s", out)
	}

	out, err = runRoot(t, "leads", "--config", cfgPath, "--approved")
	if err != nil {
		t.Fatalf("leads --approved: %v", err)
	}
	if strings.Contains(out, "João") {
		t.Fatalf("unapproved lead listed:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	cfgPath := journalConfig(t)

	out, err := runRoot(t, "history", "5581", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "position_offered > position_selected > complete") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runRoot(t, "history", "0000", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "no turns") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestServeModule_GraphIsComplete(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		State:    config.StateConfig{Backend: config.StateMemory, TTL: time.Hour},
		Agent:    config.AgentConfig{Driver: config.DriverDeterministic},
		Speech:   config.SpeechConfig{Provider: config.SpeechNone},
		Sheets:   config.SheetsConfig{SpreadsheetID: "sid"},
		WhatsApp: config.WhatsAppConfig{VerifyToken: "v"},
		Ledger:   config.LedgerConfig{JournalPath: filepath.Join(t.TempDir(), "j.db")},
	}
	if err := fx.ValidateApp(serveModule(cfg)); err != nil {
		t.Fatalf("validate app: %v", err)
	}
}

func TestServe_RejectsIncompleteConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeTestFile(cfgPath, "state:\n  backend: memory\nspeech:\n  provider: none\n"); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := runRoot(t, "serve", "--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "none.env"))
	if err == nil || !strings.Contains(err.Error(), "sheets.spreadsheet_id") {
		t.Fatalf("err = %v, want missing spreadsheet id", err)
	}
}
