package mutation

import (
	"fmt"
	"log/slog"
)

var successMessages = map[Op]string{
	OpCreate:    "Assistant created successfully",
	OpUpdate:    "Assistant updated successfully",
	OpDelete:    "Assistant deleted successfully",
	OpSaveRules: "Training saved successfully",
}

var failureMessages = map[Op]string{
	OpList:      "Could not load assistants",
	OpCreate:    "Could not create the assistant",
	OpUpdate:    "Could not update the assistant",
	OpSaveRules: "Could not save the training",
}

// reduce applies one completed call to the store. Failed calls leave the
// store untouched and surface an error notification.
func (o *Orchestrator) reduce(ev Event) (Result, error) {
	res := Result{Op: ev.Op}

	if ev.Err != nil {
		slog.Warn("Mutation failed", "op", ev.Op, "assistant_id", ev.AssistantID, "error", ev.Err)
		o.notifyFailure(ev)
		return res, ev.Err
	}

	switch ev.Op {
	case OpList:
		o.store.SetAssistants(ev.Listed)
		res.Assistants = ev.Listed

	case OpCreate:
		o.store.AddAssistant(ev.Created)
		res.Assistant = ev.Created

	case OpUpdate:
		// The backend echoes only the fields it was sent.
		cur, ok := o.store.Assistant(ev.AssistantID)
		if !ok {
			slog.Warn("Updated assistant no longer in store", "assistant_id", ev.AssistantID)
			return res, fmt.Errorf("update %s: %w", ev.AssistantID, ErrNotFound)
		}
		merged := ev.Patch.ApplyTo(cur)
		o.store.UpdateAssistant(merged)
		res.Assistant = merged

	case OpDelete:
		o.store.DeleteAssistant(ev.AssistantID)

	case OpSaveRules:
		cur, ok := o.store.Assistant(ev.AssistantID)
		if !ok {
			slog.Warn("Trained assistant no longer in store", "assistant_id", ev.AssistantID)
			return res, fmt.Errorf("save rules %s: %w", ev.AssistantID, ErrNotFound)
		}
		trained := cur.WithRules(ev.Rules)
		o.store.UpdateAssistant(trained)
		res.Assistant = trained

	default:
		return res, fmt.Errorf("unknown mutation %q", ev.Op)
	}

	if ev.CloseModal {
		o.store.CloseModal()
	}
	if msg, ok := successMessages[ev.Op]; ok && o.notes != nil {
		o.notes.Success(msg)
	}
	slog.Info("Mutation applied", "op", ev.Op, "assistant_id", ev.AssistantID)
	return res, nil
}

func (o *Orchestrator) notifyFailure(ev Event) {
	if o.notes == nil {
		return
	}
	msg := ev.Err.Error()
	if prefix, ok := failureMessages[ev.Op]; ok {
		msg = prefix + ": " + msg
	}
	o.notes.Error(msg)
}
