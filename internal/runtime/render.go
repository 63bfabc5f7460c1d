package runtime

import (
	"github.com/clubdesk/formflow/pkg/domain"
)

// View resolves the current step into a renderable view model: each owned
// field with its value, visibility, requiredness and latest failures.
func (e *Engine) View(state *domain.State) domain.StepView {
	step := state.CurrentStep
	view := domain.StepView{
		SessionID:       state.SessionID,
		Index:           step,
		Total:           len(e.def.Steps),
		Status:          state.Status,
		SubmissionError: state.SubmissionError,
	}
	if step < 0 || step >= len(e.def.Steps) {
		return view
	}

	s := e.def.Steps[step]
	view.ID = s.ID
	view.Title = s.Title
	view.Description = s.Description
	view.Fields = e.Resolve(state.Fields, s.Fields)
	for i := range view.Fields {
		view.Fields[i].Failures = state.LastFailures.For(view.Fields[i].Name)
	}
	return view
}

// Resolve describes the named fields against store.
func (e *Engine) Resolve(store domain.FieldStore, names []string) []domain.FieldView {
	out := make([]domain.FieldView, 0, len(names))
	for _, name := range names {
		f, ok := e.def.Field(name)
		if !ok {
			continue
		}
		out = append(out, domain.FieldView{
			Name:     f.Name,
			Label:    f.DisplayLabel(),
			Help:     f.Help,
			Kind:     f.Kind,
			Value:    domain.CloneValue(store.Value(f.Name)),
			Options:  f.Options,
			Visible:  e.resolver.IsVisible(f.Name, store),
			Required: e.resolver.IsRequired(f.Name, store) || f.MustBeTrue,

			Multiline: f.Delimiter == "\n",
		})
	}
	return out
}
