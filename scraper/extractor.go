// scraper/extractor.go
package scraper

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// countsMember is the archive's optional manifest of per-file line counts.
const countsMember = "counts"

// Extraction lists the flat files produced for one run.
type Extraction struct {
	Dir   string
	Files map[models.TableKind]string
	// Expected row counts from the counts member; missing kinds are unknown.
	Expected map[models.TableKind]int64
}

// Extractor unpacks table members from the archive.
type Extractor struct {
	// Parallelism bounds concurrent member extraction, 0 means 4.
	Parallelism int
}

// Extract unpacks the member of every kind into destDir, which is emptied
// first. All members are located before anything is written: if one is
// missing the call fails with MissingMemberError and destDir is untouched.
// Members that are not table files are ignored.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string, kinds []models.TableKind) (*Extraction, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, models.NewSyncError(models.FetchError, "extracting",
			fmt.Errorf("failed to open archive %s: %w", archivePath, err))
	}
	defer zr.Close()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members[strings.ToUpper(path.Base(f.Name))] = f
	}

	selected := make(map[models.TableKind]*zip.File, len(kinds))
	var missing []string
	for _, k := range kinds {
		f, ok := members[strings.ToUpper(k.MemberName())]
		if !ok {
			missing = append(missing, k.MemberName())
			continue
		}
		selected[k] = f
	}
	if len(missing) > 0 {
		return nil, models.NewSyncError(models.MissingMemberError, "extracting",
			fmt.Errorf("archive %s lacks %s", archivePath, strings.Join(missing, ", ")))
	}

	if err := os.RemoveAll(destDir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	out := &Extraction{
		Dir:      destDir,
		Files:    make(map[models.TableKind]string, len(selected)),
		Expected: map[models.TableKind]int64{},
	}
	for k := range selected {
		out.Files[k] = filepath.Join(destDir, k.MemberName())
	}

	limit := e.Parallelism
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for k, f := range selected {
		f := f
		dst := out.Files[k]
		g.Go(func() error {
			return extractMember(gctx, f, dst)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if f, ok := members[strings.ToUpper(countsMember)]; ok {
		rc, err := f.Open()
		if err == nil {
			out.Expected = parseCounts(rc)
			rc.Close()
		}
	}

	logging.FromContext(ctx).Info("archive extracted", "dir", destDir, "members", len(selected))
	return out, nil
}

func extractMember(ctx context.Context, f *zip.File, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return w.Close()
}

// LocateExtracted checks an already-extracted directory for every kind's file.
func LocateExtracted(dir string, kinds []models.TableKind) (*Extraction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.NewSyncError(models.MissingMemberError, "extracting",
			fmt.Errorf("failed to read %s: %w", dir, err))
	}
	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			byName[strings.ToUpper(e.Name())] = filepath.Join(dir, e.Name())
		}
	}

	out := &Extraction{Dir: dir, Files: map[models.TableKind]string{}, Expected: map[models.TableKind]int64{}}
	var missing []string
	for _, k := range kinds {
		p, ok := byName[strings.ToUpper(k.MemberName())]
		if !ok {
			missing = append(missing, k.MemberName())
			continue
		}
		out.Files[k] = p
	}
	if len(missing) > 0 {
		return nil, models.NewSyncError(models.MissingMemberError, "extracting",
			fmt.Errorf("%s lacks %s", dir, strings.Join(missing, ", ")))
	}
	if p, ok := byName[strings.ToUpper(countsMember)]; ok {
		if f, err := os.Open(p); err == nil {
			out.Expected = parseCounts(f)
			f.Close()
		}
	}
	return out, nil
}

// parseCounts reads "<lines> <path>" entries. Unreadable lines are ignored.
func parseCounts(r io.Reader) map[models.TableKind]int64 {
	counts := map[models.TableKind]int64{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		name := path.Base(strings.ReplaceAll(fields[len(fields)-1], `\`, "/"))
		name = strings.TrimSuffix(strings.ToUpper(name), ".DAT")
		if k, ok := models.ParseTableKind(name); ok {
			counts[k] = n
		}
	}
	return counts
}
