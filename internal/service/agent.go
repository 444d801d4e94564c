package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/backend/internal/model"
	"google.golang.org/genai"
)

const (
	maxToolRounds = 8
	historyWindow = 20
)

const agentInstructions = `You are a friendly and helpful Todo Assistant. You help the signed-in user
manage their tasks through natural conversation.

You can create tasks, list tasks, complete tasks, update tasks and delete
tasks using the available tools. Every tool already operates on the current
user's tasks; you never need to ask who the user is.

Be warm and concise. Confirm before destructive actions like deleting a
task. If a task cannot be found, say so politely and offer to list the
user's tasks. Never expose technical error messages.`

type ChatModel interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// AgentService runs the assistant's function-calling loop. It is the only
// path from model output to storage, and it injects the gate-verified
// subject into every tool invocation: the model has no way to name a
// different user, and any user-ish argument it invents is ignored.
type AgentService struct {
	model   ChatModel
	tasks   *TaskService
	timeout time.Duration
}

func NewAgentService(chatModel ChatModel, tasks *TaskService, timeout time.Duration) *AgentService {
	return &AgentService{model: chatModel, tasks: tasks, timeout: timeout}
}

func (s *AgentService) Run(ctx context.Context, subject uuid.UUID, history []model.Message, userMessage string) (string, []model.ToolCall, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	contents := buildContents(history, userMessage)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(agentInstructions, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: toolDeclarations()}},
	}

	var calls []model.ToolCall
	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.model.GenerateContent(ctx, contents, cfg)
		if err != nil {
			return "", nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", nil, fmt.Errorf("agent returned no candidates")
		}

		functionCalls := resp.FunctionCalls()
		if len(functionCalls) == 0 {
			answer := strings.TrimSpace(resp.Text())
			if answer == "" {
				return "", nil, fmt.Errorf("agent returned empty answer")
			}
			return answer, calls, nil
		}

		contents = append(contents, resp.Candidates[0].Content)
		for _, call := range functionCalls {
			result, err := s.dispatch(ctx, subject, call.Name, call.Args)
			if err != nil {
				return "", nil, err
			}
			calls = append(calls, model.ToolCall{
				ToolName:  call.Name,
				Arguments: call.Args,
				Result:    result,
			})
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       call.ID,
						Name:     call.Name,
						Response: result,
					},
				}},
			})
		}
	}

	return "", nil, fmt.Errorf("agent exceeded %d tool rounds", maxToolRounds)
}

func buildContents(history []model.Message, userMessage string) []*genai.Content {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return append(contents, genai.NewContentFromText(userMessage, genai.RoleUser))
}

// dispatch routes one tool invocation. The subject always comes from the
// request identity context, never from the model's arguments. Ownership
// failures come back as friendly tool results so the model can apologize;
// storage failures abort the turn.
func (s *AgentService) dispatch(ctx context.Context, subject uuid.UUID, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "add_task":
		return s.addTask(ctx, subject, args)
	case "list_tasks":
		return s.listTasks(ctx, subject, args)
	case "complete_task":
		return s.completeTask(ctx, subject, args)
	case "update_task":
		return s.updateTask(ctx, subject, args)
	case "delete_task":
		return s.deleteTask(ctx, subject, args)
	default:
		return toolFailure(fmt.Sprintf("unknown tool %q", name)), nil
	}
}

func (s *AgentService) addTask(ctx context.Context, subject uuid.UUID, args map[string]any) (map[string]any, error) {
	req := model.TaskCreateRequest{
		Title:       argString(args, "title"),
		Description: argString(args, "description"),
		Status:      argString(args, "status"),
		Priority:    argString(args, "priority"),
	}
	if raw := argString(args, "due_date"); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return toolFailure("due_date must be an ISO timestamp"), nil
		}
		req.DueDate = &due
	}

	task, err := s.tasks.Create(ctx, subject, req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return toolFailure("a non-empty title is required"), nil
		}
		return nil, err
	}
	return map[string]any{"success": true, "task": taskResult(task)}, nil
}

func (s *AgentService) listTasks(ctx context.Context, subject uuid.UUID, args map[string]any) (map[string]any, error) {
	tasks, err := s.tasks.ListFiltered(ctx, subject,
		argString(args, "status"),
		argString(args, "priority"),
		argInt(args, "limit", 50),
		argInt(args, "offset", 0),
	)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		results = append(results, taskResult(&tasks[i]))
	}
	return map[string]any{"success": true, "count": len(results), "tasks": results}, nil
}

func (s *AgentService) completeTask(ctx context.Context, subject uuid.UUID, args map[string]any) (map[string]any, error) {
	taskID, ok := argTaskID(args)
	if !ok {
		return toolFailure("a valid task_id is required"), nil
	}

	task, err := s.tasks.Toggle(ctx, subject, taskID, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return toolFailure("task not found"), nil
		}
		return nil, err
	}
	return map[string]any{"success": true, "task": taskResult(task)}, nil
}

func (s *AgentService) updateTask(ctx context.Context, subject uuid.UUID, args map[string]any) (map[string]any, error) {
	taskID, ok := argTaskID(args)
	if !ok {
		return toolFailure("a valid task_id is required"), nil
	}

	var req model.TaskUpdateRequest
	if v := argString(args, "title"); v != "" {
		req.Title = &v
	}
	if v, present := args["description"].(string); present {
		req.Description = &v
	}
	if v := argString(args, "status"); v != "" {
		req.Status = &v
	}
	if v := argString(args, "priority"); v != "" {
		req.Priority = &v
	}
	if raw := argString(args, "due_date"); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return toolFailure("due_date must be an ISO timestamp"), nil
		}
		req.DueDate = &due
	}

	task, err := s.tasks.Update(ctx, subject, taskID, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return toolFailure("task not found"), nil
		}
		if errors.Is(err, ErrInvalidInput) {
			return toolFailure("the task title cannot be empty"), nil
		}
		return nil, err
	}
	return map[string]any{"success": true, "task": taskResult(task)}, nil
}

func (s *AgentService) deleteTask(ctx context.Context, subject uuid.UUID, args map[string]any) (map[string]any, error) {
	taskID, ok := argTaskID(args)
	if !ok {
		return toolFailure("a valid task_id is required"), nil
	}

	if err := s.tasks.Delete(ctx, subject, taskID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return toolFailure("task not found"), nil
		}
		return nil, err
	}
	return map[string]any{"success": true, "message": "task deleted"}, nil
}

func toolDeclarations() []*genai.FunctionDeclaration {
	taskIDProp := &genai.Schema{Type: genai.TypeString, Description: "The task identifier"}
	statusProp := &genai.Schema{Type: genai.TypeString, Enum: []string{"pending", "in_progress", "completed"}}
	priorityProp := &genai.Schema{Type: genai.TypeString, Enum: []string{"low", "medium", "high"}}
	dueDateProp := &genai.Schema{Type: genai.TypeString, Description: "Due date, ISO 8601"}

	return []*genai.FunctionDeclaration{
		{
			Name:        "add_task",
			Description: "Create a new task for the current user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString, Description: "The task title"},
					"description": {Type: genai.TypeString},
					"status":      statusProp,
					"priority":    priorityProp,
					"due_date":    dueDateProp,
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "List the current user's tasks, optionally filtered by status and priority.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"status":   statusProp,
					"priority": priorityProp,
					"limit":    {Type: genai.TypeInteger},
					"offset":   {Type: genai.TypeInteger},
				},
			},
		},
		{
			Name:        "complete_task",
			Description: "Mark one of the current user's tasks as completed.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"task_id": taskIDProp},
				Required:   []string{"task_id"},
			},
		},
		{
			Name:        "update_task",
			Description: "Update fields of one of the current user's tasks.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"task_id":     taskIDProp,
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"status":      statusProp,
					"priority":    priorityProp,
					"due_date":    dueDateProp,
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Delete one of the current user's tasks. Destructive.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"task_id": taskIDProp},
				Required:   []string{"task_id"},
			},
		},
	}
}

func taskResult(task *model.Task) map[string]any {
	result := map[string]any{
		"id":       task.ID.String(),
		"title":    task.Title,
		"status":   task.Status,
		"priority": task.Priority,
	}
	if task.Description != "" {
		result["description"] = task.Description
	}
	if task.DueDate != nil {
		result["due_date"] = task.DueDate.Format(time.RFC3339)
	}
	if task.CompletedAt != nil {
		result["completed_at"] = task.CompletedAt.Format(time.RFC3339)
	}
	return result
}

func toolFailure(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

func argString(args map[string]any, key string) string {
	if value, ok := args[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func argInt(args map[string]any, key string, fallback int) int {
	switch value := args[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	default:
		return fallback
	}
}

func argTaskID(args map[string]any) (uuid.UUID, bool) {
	id, err := uuid.Parse(argString(args, "task_id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
