package task

import (
	"context"
	"errors"
	"strings"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/google/uuid"
)

func (s *TaskService) CreateSubtask(ctx context.Context, req *CreateSubtaskRequest) (*Subtask, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, perrors.NewErrInvalidRequest("Title is required", errors.New("subtask title is required"))
	}

	if _, err := s.authorizeTask(ctx, actor, req.TaskID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSubtask(ctx, &Subtask{
		TaskID:      req.TaskID,
		Title:       title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Completed:   false,
		Checklist:   Checklist{},
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create subtask", err)
	}

	s.recordSubtask(ctx, actor.ID, "created_subtask", created, "")
	return created, nil
}

func (s *TaskService) GetSubtask(ctx context.Context, id uuid.UUID) (*Subtask, error) {
	st, err := s.repo.GetSubtask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSubtaskNotFound) {
			return nil, perrors.NewErrNotFound("Subtask not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get subtask", err)
	}
	return st, nil
}

func (s *TaskService) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*Subtask, error) {
	subtasks, err := s.repo.ListSubtasks(ctx, taskID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list subtasks", err)
	}
	if subtasks == nil {
		subtasks = []*Subtask{}
	}
	return subtasks, nil
}

// UpdateSubtask patches a subtask. A supplied version must match the stored one,
// otherwise the call fails with Conflict.
func (s *TaskService) UpdateSubtask(ctx context.Context, id uuid.UUID, req *UpdateSubtaskRequest) (*Subtask, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.GetSubtask(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeTask(ctx, actor, st.TaskID); err != nil {
		return nil, err
	}

	if req.Version != nil && *req.Version != st.Version {
		return nil, perrors.NewErrConflict("Subtask was modified, reload and retry", ErrSubtaskVersionConflict)
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, perrors.NewErrInvalidRequest("Title cannot be empty", errors.New("title cannot be empty"))
		}
		st.Title = title
	}
	if req.Description != nil {
		st.Description = req.Description
	}
	if req.AssigneeID != nil {
		st.AssigneeID = req.AssigneeID
	}
	if req.Completed != nil {
		st.Completed = *req.Completed
	}
	if req.Checklist != nil {
		checklist, err := normalizeChecklist(*req.Checklist)
		if err != nil {
			return nil, err
		}
		st.Checklist = checklist
	}

	saved, err := s.save(ctx, st)
	if err != nil {
		return nil, err
	}

	s.recordSubtask(ctx, actor.ID, "updated_subtask", saved, "")
	return saved, nil
}

func (s *TaskService) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	st, err := s.GetSubtask(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorizeTask(ctx, actor, st.TaskID); err != nil {
		return err
	}

	if err := s.repo.DeleteSubtask(ctx, id); err != nil {
		if errors.Is(err, ErrSubtaskNotFound) {
			return perrors.NewErrNotFound("Subtask not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete subtask", err)
	}

	s.recordSubtask(ctx, actor.ID, "deleted_subtask", st, "")
	return nil
}

// AddChecklistItem appends an item with a server issued id.
func (s *TaskService) AddChecklistItem(ctx context.Context, subtaskID uuid.UUID, req *AddChecklistItemRequest) (*Subtask, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, perrors.NewErrInvalidRequest("Text is required", errors.New("checklist item text is required"))
	}

	return s.editChecklist(ctx, subtaskID, "added_checklist_item", func(c Checklist) (Checklist, string, error) {
		id := uuid.NewString()
		for c.Index(id) >= 0 {
			id = uuid.NewString()
		}
		return append(c, ChecklistItem{ID: id, Text: text}), text, nil
	})
}

func (s *TaskService) UpdateChecklistItem(ctx context.Context, subtaskID uuid.UUID, itemID string, req *UpdateChecklistItemRequest) (*Subtask, error) {
	var text *string
	if req.Text != nil {
		trimmed := strings.TrimSpace(*req.Text)
		if trimmed == "" {
			return nil, perrors.NewErrInvalidRequest("Text cannot be empty", errors.New("checklist item text cannot be empty"))
		}
		text = &trimmed
	}

	return s.editChecklist(ctx, subtaskID, "updated_checklist_item", func(c Checklist) (Checklist, string, error) {
		i := c.Index(itemID)
		if i < 0 {
			return nil, "", perrors.NewErrNotFound("Checklist item not found", errors.New("checklist item not found"))
		}
		if text != nil {
			c[i].Text = *text
		}
		if req.Completed != nil {
			c[i].Completed = *req.Completed
		}
		return c, c[i].Text, nil
	})
}

func (s *TaskService) RemoveChecklistItem(ctx context.Context, subtaskID uuid.UUID, itemID string) (*Subtask, error) {
	return s.editChecklist(ctx, subtaskID, "removed_checklist_item", func(c Checklist) (Checklist, string, error) {
		i := c.Index(itemID)
		if i < 0 {
			return nil, "", perrors.NewErrNotFound("Checklist item not found", errors.New("checklist item not found"))
		}
		text := c[i].Text
		return append(c[:i], c[i+1:]...), text, nil
	})
}

// editChecklist applies edit to a fresh copy of the checklist and saves it,
// re-reading and re-applying when another writer got in first.
func (s *TaskService) editChecklist(ctx context.Context, subtaskID uuid.UUID, action string, edit func(Checklist) (Checklist, string, error)) (*Subtask, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	// a subtask never moves between tasks, one check covers every attempt
	st, err := s.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeTask(ctx, actor, st.TaskID); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		st, err := s.GetSubtask(ctx, subtaskID)
		if err != nil {
			return nil, err
		}

		checklist, item, err := edit(st.Checklist.Clone())
		if err != nil {
			return nil, err
		}
		st.Checklist = checklist

		saved, err := s.save(ctx, st)
		if err == nil {
			s.recordSubtask(ctx, actor.ID, action, saved, item)
			return saved, nil
		}
		if !errors.Is(err, ErrSubtaskVersionConflict) || attempt == checklistAttempts {
			return nil, err
		}
	}
}

func (s *TaskService) save(ctx context.Context, st *Subtask) (*Subtask, error) {
	saved, err := s.repo.SaveSubtask(ctx, st)
	if err != nil {
		switch {
		case errors.Is(err, ErrSubtaskVersionConflict):
			return nil, perrors.NewErrConflict("Subtask was modified, reload and retry", err)
		case errors.Is(err, ErrSubtaskNotFound):
			return nil, perrors.NewErrNotFound("Subtask not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to save subtask", err)
	}
	return saved, nil
}

// normalizeChecklist validates a client supplied checklist: blank ids are
// assigned, duplicate ids are rejected.
func normalizeChecklist(items Checklist) (Checklist, error) {
	out := make(Checklist, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			return nil, perrors.NewErrInvalidRequest("Checklist item text is required", errors.New("checklist item text is required"))
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if seen[item.ID] {
			return nil, perrors.NewErrInvalidRequest("Duplicate checklist item id", errors.New("duplicate checklist item id "+item.ID))
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out, nil
}

func (s *TaskService) recordSubtask(ctx context.Context, userID uuid.UUID, action string, st *Subtask, item string) {
	s.activity.Record(ctx, activity.Entry{
		UserID:     userID,
		Action:     action,
		EntityType: activity.EntitySubtask,
		EntityID:   st.ID.String(),
		Details:    activity.SubtaskDetails{TaskID: st.TaskID.String(), Title: st.Title, Item: item},
	})
}
