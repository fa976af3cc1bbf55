package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/doctor"
	"github.com/starford/hagal/internal/index"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/workspace"
)

// RunDoctor previews or applies one doctor action. Applied runs re-index
// every note they touched and publish SSE events.
func (s *Service) RunDoctor(ctx context.Context, req DoctorRequest) (*DoctorResponse, error) {
	action, err := doctor.ParseAction(req.Action)
	if err != nil {
		return nil, fmt.Errorf("noteservice: %w: %w", apperr.ErrInvalidInput, err)
	}
	if a, ok := action.(doctor.FindIncompatibleExtensions); ok && req.Installed != nil {
		a.Installed = req.Installed
		action = a
	}
	scope, err := doctor.ParseScope(req.Scope)
	if err != nil {
		return nil, fmt.Errorf("noteservice: %w: %w", apperr.ErrInvalidInput, err)
	}

	opts := append([]doctor.Option{doctor.WithLogger(s.logger)}, s.opts...)
	if req.Note != "" {
		ref, ok := workspace.ParseRef(req.Note)
		if !ok {
			return nil, fmt.Errorf("noteservice: bad note address %q: %w", req.Note, apperr.ErrInvalidInput)
		}
		opts = append(opts, doctor.WithActiveNote(doctor.FixedNote(ref)))
	}
	if req.Confirm {
		opts = append(opts, doctor.WithConfirmer(doctor.AutoConfirm))
	}
	d := doctor.New(s.ws, opts...)

	if !req.Confirm {
		if _, ok := action.(doctor.FindIncompatibleExtensions); !ok {
			p, err := d.Preview(ctx, action, scope)
			if err != nil {
				return nil, err
			}
			return &DoctorResponse{Preview: &p}, nil
		}
	}

	res, err := d.Run(ctx, action, scope)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		for _, c := range s.changedNotes(res) {
			s.IndexNote(c.ref, c.kind)
		}
	}
	if s.broker != nil {
		s.broker.PublishDoctorCompleted(res.Action, res)
	}
	s.logger.Info("noteservice: doctor run",
		slog.String("action", res.Action),
		slog.Bool("applied", res.Applied))
	return &DoctorResponse{Result: &res}, nil
}

type changedNote struct {
	ref  models.NoteRef
	kind string
}

// changedNotes lists the planned notes the repair actually wrote, in plan
// order. Skipped and failed items are left out.
func (s *Service) changedNotes(res doctor.Result) []changedNote {
	if res.Repair == nil {
		return nil
	}
	kinds := make(map[string]string, len(res.Repair.Created)+len(res.Repair.Rewritten))
	for _, p := range res.Repair.Created {
		kinds[p] = index.EventCreated
	}
	for _, p := range res.Repair.Rewritten {
		kinds[p] = index.EventUpdated
	}
	var out []changedNote
	for _, it := range res.Plan.Items {
		if kind, ok := kinds[s.ws.Path(it.Ref)]; ok {
			out = append(out, changedNote{ref: it.Ref, kind: kind})
		}
	}
	return out
}
