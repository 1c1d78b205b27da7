// Package export packs eligible student records into the fixed-layout binary
// stream consumed by the native grade module and invokes that module.
//
// Wire format, little-endian, 16 bytes per record, no header or delimiters:
//
//	int32   identifier (RA)
//	float32 first score
//	float32 second score
//	float32 project score
//
// The record count is implicit (file size / 16, or the line count of the
// companion identifier list). Record i of the binary file corresponds to
// line i of the list.
package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"acadkeeper/internal/crypto/fieldcrypt"
	"acadkeeper/internal/errs"
	"acadkeeper/internal/model"
)

// DefaultTimeout bounds the native module run. The original system waited
// forever; the bound is a deliberate improvement.
const DefaultTimeout = 30 * time.Second

// record mirrors the native module's struct layout.
type record struct {
	RA      int32
	First   float32
	Second  float32
	Project float32
}

// Result reports a successful export. The handoff is one-way: the module
// communicates only through its exit status, so there is nothing to parse
// back.
type Result struct {
	Records    int
	BinaryPath string
	ListPath   string
}

// Exporter writes the export artifacts and runs the native module.
type Exporter struct {
	crypt      *fieldcrypt.Keeper
	binPath    string
	listPath   string
	modulePath string
	timeout    time.Duration
	log        *zap.Logger
}

// New constructs an Exporter. A non-positive timeout falls back to
// DefaultTimeout.
func New(crypt *fieldcrypt.Keeper, binPath, listPath, modulePath string, timeout time.Duration, log *zap.Logger) *Exporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{
		crypt:      crypt,
		binPath:    binPath,
		listPath:   listPath,
		modulePath: modulePath,
		timeout:    timeout,
		log:        log,
	}
}

// Export packs one record per eligible student and hands the artifacts to
// the native module.
//
// A student is eligible when the identifier decrypts and consists entirely
// of decimal digits; everything else is skipped, never failing the whole
// export. Students are visited in document order, which keeps the binary
// records and the identifier list aligned by index. With zero eligible
// students nothing is written and errs.ErrNoEligibleRecords is returned.
func (e *Exporter) Export(ctx context.Context, doc *model.Document) (Result, error) {
	var buf bytes.Buffer
	var ras []string

	for _, st := range doc.Students {
		ra, err := e.crypt.Decrypt(st.RAEnc)
		if err != nil {
			e.log.Warn("skipping student: identifier does not decrypt",
				zap.String("login", st.Login))
			continue
		}
		n, err := strconv.Atoi(ra)
		if err != nil || !allDigits(ra) {
			e.log.Warn("skipping student: identifier is not numeric",
				zap.String("login", st.Login))
			continue
		}

		native := st.Grades.Subjects[model.SubjectNative]
		rec := record{
			RA:      int32(n),
			First:   float32(native.First),
			Second:  float32(native.Second),
			Project: float32(st.Grades.Project),
		}
		if err := binary.Write(&buf, binary.LittleEndian, rec); err != nil {
			return Result{}, fmt.Errorf("pack record: %w", err)
		}
		ras = append(ras, ra)
	}

	if len(ras) == 0 {
		return Result{}, errs.ErrNoEligibleRecords
	}

	if err := os.WriteFile(e.binPath, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("write binary artifact: %w", errs.ErrPersistence)
	}
	var list bytes.Buffer
	for _, ra := range ras {
		list.WriteString(ra)
		list.WriteByte('\n')
	}
	if err := os.WriteFile(e.listPath, list.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("write identifier list: %w", errs.ErrPersistence)
	}

	if err := e.runModule(ctx); err != nil {
		return Result{}, err
	}

	e.log.Info("export complete",
		zap.Int("records", len(ras)),
		zap.String("binary", e.binPath))
	return Result{Records: len(ras), BinaryPath: e.binPath, ListPath: e.listPath}, nil
}

// runModule blocks until the native executable exits or the deadline fires.
// The module takes no arguments and reads the artifacts from its working
// directory.
func (e *Exporter) runModule(ctx context.Context) error {
	if _, err := os.Stat(e.modulePath); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", e.modulePath, errs.ErrModuleMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.modulePath)
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("deadline after %s: %w", e.timeout, errs.ErrModuleFailed)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("exit status %d: %w", exitErr.ExitCode(), errs.ErrModuleFailed)
		}
		return fmt.Errorf("%s: %w", e.modulePath, errs.ErrModuleMissing)
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
