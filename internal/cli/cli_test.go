package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// workspace is one config and data directory pair shared by successive
// gridctl invocations.
type workspace struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	return &workspace{t: t, configDir: filepath.Join(dir, "config"), dataDir: filepath.Join(dir, "data")}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (w *workspace) run(stdin string, args ...string) result {
	w.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config-dir", w.configDir, "--data-dir", w.dataDir}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// ok runs a command that must succeed and returns its stdout.
func (w *workspace) ok(args ...string) string {
	w.t.Helper()
	r := w.run("", args...)
	require.Equal(w.t, exitSuccess, r.code, "gridctl %v: %s", args, r.stderr)
	return r.stdout
}

func (w *workspace) decode(v any, args ...string) {
	w.t.Helper()
	out := w.ok(append(args, "--json")...)
	require.NoError(w.t, json.Unmarshal([]byte(out), v), out)
}

// stocked prepares a layout with one red Bandages slot at (0,0), a kit
// KIT1 and a waiting module 01050001.
func (w *workspace) stocked() {
	w.t.Helper()
	w.ok("init")
	w.ok("catalog", "add", "1", "Bandages")
	w.ok("layout", "place", "--col", "0", "--row", "0", "--width", "2")
	w.ok("layout", "assign", "0", "--name", "Bandages", "--color", "red")
	w.ok("kit", "create", "--id", "KIT1", "--name", "Alpha", "--qr", "QR-ALPHA")
	w.ok("module", "register", "01050001")
}

type showReport struct {
	Kit     types.Kit `json:"kit"`
	Verdict struct {
		Status types.OperationalStatus
		Reason string
	} `json:"verdict"`
	Effective []types.Module `json:"effective"`
	PickList  []struct {
		Action string `json:"action"`
	} `json:"pick_list"`
}

func TestVersionSkipsSetup(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"version"}, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out.String(), "gridctl v")
}

func TestInitWritesConfigAndData(t *testing.T) {
	w := newWorkspace(t)
	out := w.ok("init")
	assert.Contains(t, out, "smartgrid initialized")
	assert.FileExists(t, filepath.Join(w.configDir, "config.yaml"))
	assert.DirExists(t, w.dataDir)

	// A second init leaves both alone.
	assert.Contains(t, w.ok("init"), "smartgrid initialized")
}

func TestLayoutEditing(t *testing.T) {
	w := newWorkspace(t)
	w.ok("catalog", "add", "1", "Bandages")
	w.ok("layout", "place", "--col", "0", "--row", "0", "--width", "2")

	var free []struct{ Name, Color string }
	w.decode(&free, "layout", "assign", "0")
	assert.Len(t, free, len(palette))

	w.ok("layout", "assign", "0", "--name", "Bandages", "--color", "red")
	var tmpl types.Template
	w.decode(&tmpl, "layout", "show")
	require.Len(t, tmpl.Slots, 1)
	assert.Equal(t, "Bandages", tmpl.Slots[0].Name)
	assert.Equal(t, 2, tmpl.Slots[0].Width)

	r := w.run("", "layout", "place", "--col", "1", "--row", "0")
	assert.Equal(t, exitUserError, r.code, "overlapping slot")
	assert.Contains(t, r.stderr, "error:")

	r = w.run("", "layout", "assign", "0", "--name", "Splints")
	assert.Equal(t, exitUserError, r.code, "unknown content")

	r = w.run("", "layout", "resize", "--cols", "1")
	assert.Equal(t, exitUserError, r.code, "slot would fall outside")

	w.ok("layout", "remove", "--col", "0", "--row", "0")
	w.decode(&tmpl, "layout", "show")
	assert.Empty(t, tmpl.Slots)
}

func TestKitShowReportsPlaceholders(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	var r showReport
	w.decode(&r, "kit", "show", "QR-ALPHA")
	assert.Equal(t, "KIT1", r.Kit.ID)
	assert.Equal(t, types.StatusNeedsAttention, r.Verdict.Status)
	require.Len(t, r.Effective, 1)
	assert.Equal(t, "01XX0001", r.Effective[0].ID)
	assert.True(t, r.Effective[0].Placeholder)
	require.Len(t, r.PickList, 1)
	assert.Equal(t, "place", r.PickList[0].Action)

	var kits []types.Kit
	w.decode(&kits, "kit", "list")
	require.Len(t, kits, 1)
	assert.Equal(t, types.StatusNeedsAttention, kits[0].Status)
}

func TestSwapPlacesModule(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	r := w.run("01050001\n", "swap", "KIT1", "--col", "0", "--row", "0")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "kit status: OPERATIONAL")

	var s showReport
	w.decode(&s, "kit", "show", "KIT1")
	assert.Equal(t, types.StatusOperational, s.Kit.Status)
	require.Len(t, s.Effective, 1)
	assert.Equal(t, "01050001", s.Effective[0].ID)
	assert.Empty(t, s.PickList)

	// The slot is now fine, so there is nothing to swap.
	r = w.run("", "swap", "KIT1", "--col", "0", "--row", "0")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "nothing to replace")
}

func TestSwapRejectionsThenAbandon(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	r := w.run("99999999\n02050001\n", "--json", "swap", "KIT1", "--col", "0", "--row", "0")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, ErrSwapAbandoned.Error())

	var codes []string
	for _, line := range strings.Split(strings.TrimSpace(r.stdout), "\n") {
		var l struct {
			Outcome struct{ Code string } `json:"outcome"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &l), line)
		codes = append(codes, l.Outcome.Code)
	}
	assert.Equal(t, []string{"OK", "NOT_REGISTERED", "NOT_REGISTERED"}, codes)

	var s showReport
	w.decode(&s, "kit", "show", "KIT1")
	assert.True(t, s.Effective[0].Placeholder, "nothing committed")
}

func TestSwapCancel(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	r := w.run("cancel\n", "swap", "KIT1")
	assert.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "replacement cancelled")
}

func TestPreparationIsSticky(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	w.ok("kit", "prepare", "KIT1")
	w.ok("refresh")

	var s showReport
	w.decode(&s, "kit", "show", "KIT1")
	assert.Equal(t, types.StatusInPreparation, s.Kit.Status)

	assert.Contains(t, w.ok("kit", "finish", "KIT1"), "KIT1: NEEDS_ATTENTION")
	r := w.run("", "kit", "finish", "KIT1")
	assert.Equal(t, exitUserError, r.code, "not being prepared")
}

func TestRefreshListsAlerts(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()
	r := w.run("01050001\n", "swap", "KIT1")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	soon := time.Now().AddDate(0, 0, 5).Format(dateLayout)
	w.ok("packing", "add", "01050001", "--article", "Gauze", "--expiry", soon)

	var rep struct {
		Kits   []types.Kit `json:"kits"`
		Alerts []struct {
			Level    string `json:"type"`
			KitID    string `json:"backpack_id"`
			ModuleID string `json:"module_id"`
		} `json:"alerts"`
	}
	w.decode(&rep, "refresh")
	require.Len(t, rep.Kits, 1)
	assert.Equal(t, types.StatusNeedsAttention, rep.Kits[0].Status)
	require.Len(t, rep.Alerts, 1)
	assert.Equal(t, "WARNING", rep.Alerts[0].Level)
	assert.Equal(t, "KIT1", rep.Alerts[0].KitID)
	assert.Equal(t, "01050001", rep.Alerts[0].ModuleID)
}

func TestPackingSetsModuleExpiry(t *testing.T) {
	w := newWorkspace(t)
	w.stocked()

	w.ok("packing", "add", "01050001", "--article", "Gauze", "--batch", "B1", "--expiry", "2031-05-01")
	w.ok("packing", "add", "01050001", "--article", "Tape", "--expiry", "2030-01-15", "--quantity", "3")

	var mr moduleReport
	w.decode(&mr, "module", "show", "01050001")
	require.NotNil(t, mr.Module.Expiry)
	assert.Equal(t, "2030-01-15", mr.Module.Expiry.Format(dateLayout))
	assert.Len(t, mr.Contents, 2)

	r := w.run("", "packing", "add", "01050001", "--article", "Tape", "--expiry", "15/01/2030")
	assert.Equal(t, exitUserError, r.code)

	w.ok("packing", "clear", "01050001")
	var cleared moduleReport
	w.decode(&cleared, "module", "show", "01050001")
	assert.Nil(t, cleared.Module.Expiry)
	assert.Empty(t, cleared.Contents)
}

func TestArticlesAndRecipes(t *testing.T) {
	w := newWorkspace(t)
	w.ok("catalog", "add", "1", "Bandages")

	var art types.Article
	w.decode(&art, "article", "add", "Elastic bandage", "--category", "dressing", "--unit", "roll")
	require.NotEmpty(t, art.ID)

	var it types.RecipeItem
	w.decode(&it, "recipe", "add", "1", art.ID, "--quantity", "4")
	assert.Equal(t, "0001", it.CatalogCode)

	var items []types.RecipeItem
	w.decode(&items, "recipe", "list", "0001")
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	require.NotNil(t, items[0].Article)
	assert.Equal(t, "Elastic bandage", items[0].Article.Name)

	w.ok("recipe", "remove", it.ID)
	r := w.run("", "recipe", "remove", it.ID)
	assert.Equal(t, exitUserError, r.code)
}

func TestUnknownKitIsUserError(t *testing.T) {
	w := newWorkspace(t)
	r := w.run("", "kit", "show", "nope")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "error:")
}

func TestBadConfigIsUserError(t *testing.T) {
	w := newWorkspace(t)
	require.NoError(t, os.MkdirAll(w.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.configDir, "config.yaml"),
		[]byte("backend: postgres\n"), 0o644))
	r := w.run("", "kit", "list")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, types.ErrBackendUnknown.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"user error", types.ErrNotFound, exitUserError},
		{"marked system error", sysErr(errors.New("disk full")), exitSysError},
		{"wrapped system error", fmt.Errorf("attach: %w", sysErr(errors.New("disk full"))), exitSysError},
		{"transport", types.Transport("save", errors.New("io")), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
