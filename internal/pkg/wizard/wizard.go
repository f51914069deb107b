// Package wizard models the multi-step project submission form: ordered
// steps with step-scoped validation, type-dependent required files, and
// assembly of the multipart submission.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/csi-showcase/showcase/internal/pkg/contributor"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/google/uuid"
)

type Step int

const (
	StepBasic Step = iota
	StepDetails
	StepContributors
	StepMedia
	StepReview
)

var stepNames = map[Step]string{
	StepBasic:        "basic",
	StepDetails:      "details",
	StepContributors: "contributors",
	StepMedia:        "media",
	StepReview:       "review",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ParseStep resolves a step name as used by the validate endpoint.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// PendingFile is a local file queued for upload.
type PendingFile struct {
	Path     string
	Name     string
	Size     int64
	MIME     string
	Category upload.Category
}

// Wizard holds draft state for one submission session.
type Wizard struct {
	Draft  Draft
	Limits upload.Limits

	userID uuid.UUID
	step   Step
	files  map[Slot][]PendingFile
}

// New starts a wizard for the authenticated user.
func New(userID uuid.UUID, limits upload.Limits) *Wizard {
	return &Wizard{
		Limits: limits,
		userID: userID,
		files:  make(map[Slot][]PendingFile),
	}
}

func (w *Wizard) Step() Step { return w.step }

// Next validates the current step and advances. On failure the step does
// not change.
func (w *Wizard) Next() error {
	if w.step == StepReview {
		return nil
	}
	if errs := ValidateStep(&w.Draft, w.step, w.userID, w.Has); len(errs) > 0 {
		return errs
	}
	w.step++
	return nil
}

// Back moves to the previous step without validation.
func (w *Wizard) Back() {
	if w.step > StepBasic {
		w.step--
	}
}

// Has reports whether slot holds at least one pending file.
func (w *Wizard) Has(s Slot) bool { return len(w.files[s]) > 0 }

func (w *Wizard) Files(s Slot) []PendingFile { return w.files[s] }

// AddFiles queues local files into slot. Files failing the type or size
// check are dropped and returned as rejections; single-file slots keep the
// last accepted file.
func (w *Wizard) AddFiles(s Slot, paths ...string) []*upload.RejectError {
	var rejected []*upload.RejectError
	for _, p := range paths {
		cat, mime, err := upload.CheckPath(p, s.Category(), w.Limits)
		if err != nil {
			var re *upload.RejectError
			if !errors.As(err, &re) {
				re = &upload.RejectError{Filename: filepath.Base(p), Reason: err.Error()}
			}
			rejected = append(rejected, re)
			continue
		}
		st, err := os.Stat(p)
		if err != nil {
			rejected = append(rejected, &upload.RejectError{Filename: filepath.Base(p), Reason: err.Error()})
			continue
		}
		f := PendingFile{Path: p, Name: filepath.Base(p), Size: st.Size(), MIME: mime, Category: cat}
		if s.Single() {
			w.files[s] = []PendingFile{f}
		} else {
			w.files[s] = append(w.files[s], f)
		}
	}
	return rejected
}

func (w *Wizard) RemoveFile(s Slot, i int) {
	if i < 0 || i >= len(w.files[s]) {
		return
	}
	w.files[s] = append(w.files[s][:i], w.files[s][i+1:]...)
}

// AddRegistered and AddExternal manage the contributor step.
func (w *Wizard) AddRegistered(c contributor.Contributor) error {
	return w.Draft.Contributors.AddRegistered(w.userID, c)
}

func (w *Wizard) AddExternal(c contributor.Contributor) error {
	return w.Draft.Contributors.AddExternal(c)
}

// Validate checks every step, as done before submission.
func (w *Wizard) Validate() error {
	return Validate(&w.Draft, w.userID, w.Has)
}

// WriteMultipart writes the submission: the JSON draft in the "payload"
// field followed by every pending file under its slot name.
func (w *Wizard) WriteMultipart(mw *multipart.Writer) error {
	d := w.Draft
	d.Normalize()
	body, err := sonic.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := mw.WriteField("payload", string(body)); err != nil {
		return err
	}
	for _, s := range Slots {
		for _, f := range w.files[s] {
			if err := writeFile(mw, string(s), f); err != nil {
				return fmt.Errorf("attach %s: %w", f.Name, err)
			}
		}
	}
	return nil
}

func writeFile(mw *multipart.Writer, field string, f PendingFile) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", f.MIME)
	dst, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
