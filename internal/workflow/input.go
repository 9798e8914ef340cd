package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/burilovmikhail/hermes-claude-bot/internal/jira"
)

// TaskInputFile is where standalone runs read their task description. The
// queue-driven worker passes task data in memory instead.
const TaskInputFile = "task_input.json"

type taskInputFile struct {
	TaskID      string      `json:"task_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	JiraTicket  string      `json:"jira_ticket,omitempty"`
	JiraDetails *jira.Issue `json:"jira_details,omitempty"`
}

// LoadTaskInput reads a task description file for a standalone run.
func LoadTaskInput(path, taskID string) (TaskInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TaskInput{}, fmt.Errorf("failed to read task input %s: %w", path, err)
	}
	var file taskInputFile
	if err := json.Unmarshal(data, &file); err != nil {
		return TaskInput{}, fmt.Errorf("failed to decode task input %s: %w", path, err)
	}
	if file.TaskID == "" {
		file.TaskID = taskID
	}
	if file.Title == "" && file.Description == "" {
		return TaskInput{}, fmt.Errorf("task input %s has neither title nor description", path)
	}
	if file.Title == "" {
		file.Title = file.Description
	}
	return TaskInput{
		TaskID:        file.TaskID,
		Title:         file.Title,
		Description:   file.Description,
		Ticket:        file.JiraTicket,
		TicketDetails: file.JiraDetails,
	}, nil
}
