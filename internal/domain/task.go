package domain

// TaskColumn names a column of the task board.
type TaskColumn string

// Task board columns.
const (
	TaskColumnNew        TaskColumn = "Tugas Baru"
	TaskColumnInProgress TaskColumn = "Sedang Dikerjakan"
	TaskColumnDone       TaskColumn = "Selesai"
)

// TaskColumns lists the board columns in display order.
var TaskColumns = []TaskColumn{TaskColumnNew, TaskColumnInProgress, TaskColumnDone}

// DueDateLayout is the date-only format used for task due dates.
const DueDateLayout = "2006-01-02"

// Task is a unit of follow-up work on the task board.
// LinkedIncidentID is empty for tasks not created by escalation.
type Task struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Assignee         string `json:"assignee"`
	DueDate          string `json:"due_date"`
	LinkedIncidentID string `json:"linked_incident_id,omitempty"`
}

// TaskBoardColumn is a column together with its tasks.
type TaskBoardColumn struct {
	Column TaskColumn `json:"column"`
	Tasks  []Task     `json:"tasks"`
}
