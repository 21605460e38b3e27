package controllers

import (
	"fmt"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterTaskRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/projects/{id}/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var status *task.Status
		if raw := optionalStringQuery(ctx, "status"); raw != nil {
			s := task.Status(*raw)
			if !s.Valid() {
				writeError(ctx, stdCtx, "Invalid status", perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *raw)))
				return
			}
			status = &s
		}

		tasks, err := svc.Task.List(stdCtx, projectID, status)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list tasks", err)
			return
		}

		writeOK(ctx, stdCtx, "Tasks retrieved successfully", tasks)
	})

	r.POST("/api/projects/{id}/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		projectID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.CreateTaskRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.ProjectID = projectID

		created, err := svc.Task.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task created successfully", created)
	})

	r.GET("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		t, err := svc.Task.GetTask(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task retrieved successfully", t)
	})

	r.PATCH("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.UpdateTaskRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		updated, err := svc.Task.Update(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task updated successfully", updated)
	})

	r.DELETE("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Task.Delete(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task deleted successfully", nil)
	})

	// Subtasks
	r.GET("/api/tasks/{id}/subtasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		subtasks, err := svc.Task.ListSubtasks(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list subtasks", err)
			return
		}

		writeOK(ctx, stdCtx, "Subtasks retrieved successfully", subtasks)
	})

	r.POST("/api/tasks/{id}/subtasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.CreateSubtaskRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.TaskID = taskID

		created, err := svc.Task.CreateSubtask(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create subtask", err)
			return
		}

		writeOK(ctx, stdCtx, "Subtask created successfully", created)
	})

	r.GET("/api/subtasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		st, err := svc.Task.GetSubtask(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get subtask", err)
			return
		}

		writeOK(ctx, stdCtx, "Subtask retrieved successfully", st)
	})

	r.PATCH("/api/subtasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.UpdateSubtaskRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		updated, err := svc.Task.UpdateSubtask(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update subtask", err)
			return
		}

		writeOK(ctx, stdCtx, "Subtask updated successfully", updated)
	})

	r.DELETE("/api/subtasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Task.DeleteSubtask(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete subtask", err)
			return
		}

		writeOK(ctx, stdCtx, "Subtask deleted successfully", nil)
	})

	// Checklist items
	r.POST("/api/subtasks/{id}/checklist", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.AddChecklistItemRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		st, err := svc.Task.AddChecklistItem(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to add checklist item", err)
			return
		}

		writeOK(ctx, stdCtx, "Checklist item added successfully", st)
	})

	r.PATCH("/api/subtasks/{id}/checklist/{itemId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}
		itemID, err := pathParam(ctx, "itemId")
		if err != nil {
			writeError(ctx, stdCtx, "Item ID is required", perrors.NewErrInvalidRequest("Item ID is required", err))
			return
		}

		var body task.UpdateChecklistItemRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		st, err := svc.Task.UpdateChecklistItem(stdCtx, id, itemID, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update checklist item", err)
			return
		}

		writeOK(ctx, stdCtx, "Checklist item updated successfully", st)
	})

	r.DELETE("/api/subtasks/{id}/checklist/{itemId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}
		itemID, err := pathParam(ctx, "itemId")
		if err != nil {
			writeError(ctx, stdCtx, "Item ID is required", perrors.NewErrInvalidRequest("Item ID is required", err))
			return
		}

		st, err := svc.Task.RemoveChecklistItem(stdCtx, id, itemID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to remove checklist item", err)
			return
		}

		writeOK(ctx, stdCtx, "Checklist item removed successfully", st)
	})

	// Dependencies
	r.GET("/api/tasks/{id}/dependencies", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		deps, err := svc.Task.ListDependencies(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list dependencies", err)
			return
		}

		writeOK(ctx, stdCtx, "Dependencies retrieved successfully", deps)
	})

	r.GET("/api/tasks/{id}/dependents", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		deps, err := svc.Task.ListDependents(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list dependents", err)
			return
		}

		writeOK(ctx, stdCtx, "Dependents retrieved successfully", deps)
	})

	r.POST("/api/tasks/{id}/dependencies", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		taskID, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.AddDependencyRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}
		body.TaskID = taskID

		dep, err := svc.Task.AddDependency(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to add dependency", err)
			return
		}

		writeOK(ctx, stdCtx, "Dependency added successfully", dep)
	})

	r.PATCH("/api/dependencies/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		var body task.UpdateDependencyRequest
		if !decodeBody(ctx, stdCtx, &body) {
			return
		}

		dep, err := svc.Task.UpdateDependency(stdCtx, id, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update dependency", err)
			return
		}

		writeOK(ctx, stdCtx, "Dependency updated successfully", dep)
	})

	r.DELETE("/api/dependencies/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		id, ok := uuidParam(ctx, stdCtx, "id")
		if !ok {
			return
		}

		if err := svc.Task.RemoveDependency(stdCtx, id); err != nil {
			writeError(ctx, stdCtx, "Failed to remove dependency", err)
			return
		}

		writeOK(ctx, stdCtx, "Dependency removed successfully", nil)
	})
}
