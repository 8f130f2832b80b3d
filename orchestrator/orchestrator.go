// Package orchestrator sequences signers through a document's fields and
// stamps the document once every field is settled.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/pari-ranasaria28/Document-Signature-App/capture"
	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
	"github.com/pari-ranasaria28/Document-Signature-App/stamp"
)

// Options configures an Orchestrator.
type Options struct {
	Clock   clockwork.Clock
	Stamper *stamp.Stamper
	Logger  *slog.Logger
}

// Orchestrator coordinates field placement, signing and finalization.
// Mutations of one field are serialized; different fields proceed
// independently.
type Orchestrator struct {
	store   Store
	clock   clockwork.Clock
	stamper *stamp.Stamper
	logger  *slog.Logger
	locks   *fieldLocks
}

// New creates an Orchestrator over store.
func New(store Store, opts *Options) *Orchestrator {
	if opts == nil {
		opts = &Options{}
	}
	o := &Orchestrator{
		store:   store,
		clock:   opts.Clock,
		stamper: opts.Stamper,
		logger:  opts.Logger,
		locks:   newFieldLocks(),
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.stamper == nil {
		stampOpts := stamp.DefaultOptions()
		stampOpts.Logger = o.logger
		o.stamper = stamp.New(stampOpts)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Progress summarizes a document's fields.
type Progress struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Signed   int `json:"signed"`
	Rejected int `json:"rejected"`
}

// Progress counts a document's fields by status.
func (o *Orchestrator) Progress(ctx context.Context, documentID string) (Progress, error) {
	fields, err := o.store.List(ctx, documentID)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{Total: len(fields)}
	for _, f := range fields {
		switch f.Status {
		case field.StatusPending:
			p.Pending++
		case field.StatusSigned:
			p.Signed++
		case field.StatusRejected:
			p.Rejected++
		}
	}
	return p, nil
}

// NextPending returns the signer's first pending field in reading order, or
// nil when nothing is left to sign.
func (o *Orchestrator) NextPending(ctx context.Context, documentID, signerEmail string) (*field.SignatureField, error) {
	fields, err := o.store.List(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Status == field.StatusPending && f.AssignedTo(signerEmail) {
			return f, nil
		}
	}
	return nil, nil
}

// update loads a field under its lock, applies fn and stores the result.
func (o *Orchestrator) update(ctx context.Context, id string, fn func(*field.SignatureField) error) (*field.SignatureField, error) {
	unlock := o.locks.lock(id)
	defer unlock()

	f, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}
	if err := o.store.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func requireSigner(f *field.SignatureField, signerEmail string) error {
	if !f.AssignedTo(signerEmail) {
		return sigerr.New(sigerr.KindInvalidTransition, "field is assigned to another signer").WithField(f.ID)
	}
	return nil
}

// MarkSigned records a completed signature on a field.
func (o *Orchestrator) MarkSigned(ctx context.Context, fieldID, signerEmail string, sig *capture.Signature) (*field.SignatureField, error) {
	if sig == nil || len(sig.PNG) == 0 {
		return nil, sigerr.New(sigerr.KindEmptyInput, "signature is empty").WithField(fieldID)
	}
	f, err := o.update(ctx, fieldID, func(f *field.SignatureField) error {
		if err := requireSigner(f, signerEmail); err != nil {
			return err
		}
		if err := sig.Signer.Validate(); err != nil {
			var se *sigerr.Error
			if errors.As(err, &se) {
				return se.WithField(f.ID)
			}
			return err
		}
		return f.Sign(sig.PNG, o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info("field signed", "field", f.ID, "document", f.DocumentID, "method", sig.Method)
	return f, nil
}

// MarkRejected records that the signer declined a field.
func (o *Orchestrator) MarkRejected(ctx context.Context, fieldID, signerEmail string) (*field.SignatureField, error) {
	f, err := o.update(ctx, fieldID, func(f *field.SignatureField) error {
		if err := requireSigner(f, signerEmail); err != nil {
			return err
		}
		return f.Reject(o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info("field rejected", "field", f.ID, "document", f.DocumentID)
	return f, nil
}

// Ready reports whether no field of the document is pending.
func (o *Orchestrator) Ready(ctx context.Context, documentID string) (bool, error) {
	p, err := o.Progress(ctx, documentID)
	if err != nil {
		return false, err
	}
	return p.Pending == 0, nil
}

// Finalize stamps every signed field into original. It fails with
// NotComplete while any field is pending.
func (o *Orchestrator) Finalize(ctx context.Context, documentID string, original []byte) ([]byte, *stamp.Report, error) {
	fields, err := o.store.List(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	snapshot := make([]field.SignedField, 0, len(fields))
	pending := 0
	for _, f := range fields {
		if f.Status == field.StatusPending {
			pending++
		}
		snapshot = append(snapshot, f.Snapshot())
	}
	if pending > 0 {
		return nil, nil, sigerr.New(sigerr.KindNotComplete, "%d of %d fields are still pending", pending, len(fields))
	}

	out, report, err := o.stamper.StampWithReport(original, snapshot)
	if err != nil {
		return nil, nil, err
	}
	o.logger.Info("document finalized", "document", documentID, "placements", len(report.Placements))
	return out, report, nil
}

// PlaceField adds a field to a document.
func (o *Orchestrator) PlaceField(ctx context.Context, p field.Placement) (*field.SignatureField, error) {
	f, err := field.New(p)
	if err != nil {
		return nil, err
	}
	if err := o.store.Put(ctx, f); err != nil {
		return nil, err
	}
	o.logger.Debug("field placed", "field", f.ID, "document", f.DocumentID, "page", f.PageNumber)
	return f, nil
}

// MoveField repositions a pending field.
func (o *Orchestrator) MoveField(ctx context.Context, fieldID string, page int, pos geometry.Fraction) (*field.SignatureField, error) {
	return o.update(ctx, fieldID, func(f *field.SignatureField) error {
		return f.Move(page, pos)
	})
}

// NewFieldDrag returns a drag gesture for a pending field shown on surface.
// Releasing the drag moves the field on its page, and fails if the field
// changed page after the drag began.
func (o *Orchestrator) NewFieldDrag(ctx context.Context, surface *geometry.Surface, fieldID string) (*geometry.Drag, error) {
	f, err := o.store.Get(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if f.Status != field.StatusPending {
		return nil, sigerr.New(sigerr.KindInvalidTransition, "cannot drag a %s field", f.Status).WithField(f.ID)
	}
	page := f.PageNumber
	d := geometry.NewDrag(surface, f.Position())
	d.OnCommit = func(pos geometry.Fraction) error {
		_, err := o.update(ctx, fieldID, func(f *field.SignatureField) error {
			if f.PageNumber != page {
				return sigerr.New(sigerr.KindInvalidTransition,
					"field moved from page %d to %d during the drag", page, f.PageNumber).WithField(f.ID)
			}
			return f.Move(page, pos)
		})
		return err
	}
	return d, nil
}

// AssignSigner changes a field's signer until a link has been issued.
func (o *Orchestrator) AssignSigner(ctx context.Context, fieldID, name, email string) (*field.SignatureField, error) {
	return o.update(ctx, fieldID, func(f *field.SignatureField) error {
		return f.SetSigner(name, email)
	})
}

// RemoveField deletes a pending field.
func (o *Orchestrator) RemoveField(ctx context.Context, fieldID string) error {
	unlock := o.locks.lock(fieldID)
	defer unlock()

	f, err := o.store.Get(ctx, fieldID)
	if err != nil {
		return err
	}
	if err := f.CanDelete(); err != nil {
		return err
	}
	return o.store.Delete(ctx, fieldID)
}

// IssueLink locks the signer identity on every field of the document
// assigned to signerEmail and returns how many fields were locked.
func (o *Orchestrator) IssueLink(ctx context.Context, documentID, signerEmail string) (int, error) {
	fields, err := o.store.List(ctx, documentID)
	if err != nil {
		return 0, err
	}
	locked := 0
	for _, f := range fields {
		if !f.AssignedTo(signerEmail) {
			continue
		}
		if _, err := o.update(ctx, f.ID, func(f *field.SignatureField) error {
			return f.IssueLink()
		}); err != nil {
			return locked, err
		}
		locked++
	}
	if locked == 0 {
		return 0, sigerr.New(sigerr.KindNotFound, "no fields for %s on document %s", signerEmail, documentID)
	}
	o.logger.Info("signing link issued", "document", documentID, "fields", locked)
	return locked, nil
}
