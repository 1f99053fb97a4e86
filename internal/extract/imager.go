package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// snapshotDPI keeps page snapshots small enough to ship over MCP while
// staying readable.
const snapshotDPI = 150

// PageImager renders page snapshots with pdftoppm (poppler-utils),
// which rasterizes the full page rather than extracting embedded image
// objects. When the binary is missing, snapshots degrade to
// structured-only and rendering is reported unavailable.
type PageImager struct {
	binary string
	dpi    int
}

// NewPageImager probes PATH for pdftoppm.
func NewPageImager() *PageImager {
	im := &PageImager{dpi: snapshotDPI}
	if path, err := exec.LookPath("pdftoppm"); err == nil {
		im.binary = path
	}
	return im
}

// Available reports whether page rendering can run on this host.
func (im *PageImager) Available() bool { return im.binary != "" }

// RenderPage rasterizes one page to PNG bytes. Pages are 1-indexed.
func (im *PageImager) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	if !im.Available() {
		return nil, fmt.Errorf("pdftoppm not found in PATH")
	}

	tmpDir, err := os.MkdirTemp("", "pdf2typst-page-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, im.binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(im.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// -singlefile writes <prefix>.png with no page suffix.
	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}
