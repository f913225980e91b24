package model

// Snapshot is the full four-table graph. It doubles as the export file shape.
type Snapshot struct {
	Categories []Category  `json:"categories"`
	Tasks      []Task      `json:"tasks"`
	CheckItems []CheckItem `json:"check_items"`
	TaskChecks []TaskCheck `json:"task_checks"`
}

// Clone returns a copy whose slices do not alias the receiver's.
// Nil collections come back as empty slices so they encode as [].
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Categories: append(make([]Category, 0, len(s.Categories)), s.Categories...),
		Tasks:      append(make([]Task, 0, len(s.Tasks)), s.Tasks...),
		CheckItems: append(make([]CheckItem, 0, len(s.CheckItems)), s.CheckItems...),
		TaskChecks: append(make([]TaskCheck, 0, len(s.TaskChecks)), s.TaskChecks...),
	}
}

// ChecksForTask returns the task's checks in the order they appear.
func (s Snapshot) ChecksForTask(taskID string) []TaskCheck {
	var out []TaskCheck
	for _, tc := range s.TaskChecks {
		if tc.TaskID == taskID {
			out = append(out, tc)
		}
	}
	return out
}

// CheckItemByID returns the template with the given id, if present.
func (s Snapshot) CheckItemByID(id string) (CheckItem, bool) {
	for _, ci := range s.CheckItems {
		if ci.ID == id {
			return ci, true
		}
	}
	return CheckItem{}, false
}

// CategoryName returns the name of the category with the given id,
// or an empty string.
func (s Snapshot) CategoryName(id string) string {
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
