// Package e2e exercises the full service path: HTTP multipart upload,
// workspace isolation, a real engine subprocess (a shell script standing in
// for LibreOffice), output validation, streaming, and cleanup.
package e2e

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seantiz/docforge/internal/api"
	"github.com/seantiz/docforge/internal/convert"
	"github.com/seantiz/docforge/internal/renderer"
	"github.com/seantiz/docforge/internal/store"
	"github.com/seantiz/docforge/internal/workspace"
)

// fakeEngine is a shell script honoring the LibreOffice CLI contract: it
// scans for --outdir and writes "<input stem>.pdf" there.
const fakeEngine = `#!/bin/sh
outdir=""
input=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--outdir" ]; then outdir="$arg"; fi
  prev="$arg"
  input="$arg"
done
stem=$(basename "$input")
stem="${stem%.*}"
printf '%%PDF-1.4 rendered by fake engine' > "$outdir/$stem.pdf"
exit 0
`

type fixture struct {
	ts   *httptest.Server
	root string
}

func startService(t *testing.T, engineScript string, timeout time.Duration) fixture {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "engine")
	if err := os.WriteFile(bin, []byte(engineScript), 0o755); err != nil {
		t.Fatalf("write engine script: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	root := t.TempDir()
	alloc, err := workspace.NewAllocator(root, logger)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	coord := convert.NewCoordinator(alloc, renderer.NewSoffice(bin, logger), st, 2, timeout, logger)
	srv := api.NewServer(api.Options{Addr: ":0", MaxUploadMB: 10}, coord, st, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return fixture{ts: ts, root: root}
}

func upload(t *testing.T, url, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	resp, err := http.Post(url+"/v1/convert", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /v1/convert: %v", err)
	}
	return resp
}

func TestConvertEndToEnd(t *testing.T) {
	f := startService(t, fakeEngine, time.Minute)

	resp := upload(t, f.ts.URL, "minutes.docx", bytes.Repeat([]byte("meeting notes "), 700))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "minutes.pdf") {
		t.Errorf("Content-Disposition = %q, want minutes.pdf", cd)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(data) == 0 || !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("body is not a PDF (%d bytes)", len(data))
	}
}

func TestConvertEndToEndTimeout(t *testing.T) {
	f := startService(t, "#!/bin/sh\nsleep 30\n", 200*time.Millisecond)

	start := time.Now()
	resp := upload(t, f.ts.URL, "stall.odt", []byte("x"))
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}
	if elapsed > 5*time.Second {
		t.Errorf("response took %s, engine was not killed promptly", elapsed)
	}

	// The workspace must not survive a timed-out job.
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := os.ReadDir(f.root)
		if err != nil {
			t.Fatalf("read root: %v", err)
		}
		if len(entries) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workspaces remain after timeout: %d", len(entries))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestConvertEndToEndEngineFailure(t *testing.T) {
	f := startService(t, "#!/bin/sh\necho 'Error: could not load source' >&2\nexit 1\n", time.Minute)

	resp := upload(t, f.ts.URL, "corrupt.ppt", []byte("x"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "engine_failure") {
		t.Errorf("body = %s, want engine_failure code", body)
	}

	entries, err := os.ReadDir(f.root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("workspaces remain after failure: %d", len(entries))
	}
}
